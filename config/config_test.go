package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ProjectConfigName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadWithViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "jobsd.db", cfg.Database.Path)
	assert.Equal(t, DefaultMaxConcurrentJobs, cfg.Scheduler.MaxConcurrentJobs)
	assert.Equal(t, 7*24*time.Hour, cfg.EscalationTimeout())
	assert.Equal(t, 25*time.Hour, cfg.ReminderWindow())
	assert.Equal(t, 90*24*time.Hour, cfg.HistoryRetention())
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "log", cfg.Notify.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoadExplicitFile(t *testing.T) {
	path := writeConfig(t, `
[scheduler]
max_concurrent_jobs = 5

[jobs.moderate_reports]
schedule = "*/10 * * * *"

[jobs.schedule_reminders]
enabled = false
run_on_startup = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scheduler.MaxConcurrentJobs)
	assert.Equal(t, DefaultHistoryRetentionDays, cfg.Scheduler.HistoryRetentionDays)

	moderate := cfg.Job("moderate_reports")
	assert.Equal(t, "*/10 * * * *", moderate.Schedule)
	assert.True(t, moderate.IsEnabled())

	reminders := cfg.Job("schedule_reminders")
	assert.False(t, reminders.IsEnabled())
	assert.True(t, reminders.RunOnStartup)

	assert.Equal(t, JobConfig{}, cfg.Job("unknown"))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[scheduler]\nmax_concurrent_jobs = 5\n")
	t.Setenv("JOBSD_SCHEDULER_MAX_CONCURRENT_JOBS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scheduler.MaxConcurrentJobs)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, "[scheduler]\nmax_concurrent_jobs = 0\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_jobs")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func validConfig() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := LoadWithViper(v)
	return *cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero slots", func(c *Config) { c.Scheduler.MaxConcurrentJobs = 0 }, "max_concurrent_jobs"},
		{"negative retention", func(c *Config) { c.Scheduler.HistoryRetentionDays = -1 }, "history_retention_days"},
		{"zero escalation", func(c *Config) { c.Moderation.EscalationTimeoutHours = 0 }, "escalation_timeout_hours"},
		{"zero window", func(c *Config) { c.Reminders.WindowHours = 0 }, "window_hours"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"nats cache without bucket", func(c *Config) { c.Cache.Backend = "nats"; c.Cache.Bucket = "" }, "cache.bucket"},
		{"nats cache", func(c *Config) { c.Cache.Backend = "nats" }, ""},
		{"unknown notify", func(c *Config) { c.Notify.Backend = "smtp" }, "notify.backend"},
		{"nats notify without url", func(c *Config) { c.Notify.Backend = "nats"; c.NATS.URL = "" }, "nats.url"},
		{"negative rate", func(c *Config) { c.Notify.MaxPerSecond = -1 }, "max_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindProjectConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigName), []byte(""), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	found := findProjectConfig()
	// macOS temp dirs resolve through /private
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedFound, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedRoot, ProjectConfigName), resolvedFound)
}

func TestRenderRoundTrip(t *testing.T) {
	cfg := validConfig()
	enabled := true
	cfg.Jobs = map[string]JobConfig{
		"moderate_reports": {Schedule: "*/5 * * * *", Enabled: &enabled, RunOnStartup: true},
	}

	out, err := Render(&cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "max_concurrent_jobs = 3")
	assert.Contains(t, out, "[jobs.moderate_reports]")

	parsed, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, cfg.Scheduler, parsed.Scheduler)
	assert.Equal(t, "*/5 * * * *", parsed.Job("moderate_reports").Schedule)
	assert.True(t, parsed.Job("moderate_reports").IsEnabled())
	assert.True(t, parsed.Job("moderate_reports").RunOnStartup)
}

func TestWatcherReloadRunsCallbacks(t *testing.T) {
	path := writeConfig(t, "[scheduler]\nmax_concurrent_jobs = 2\n")

	w, err := NewWatcher(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	var seen []int
	w.OnReload(func(c *Config) error {
		seen = append(seen, c.Scheduler.MaxConcurrentJobs)
		return nil
	})
	w.OnReload(func(c *Config) error {
		return assert.AnError
	})
	w.OnReload(func(c *Config) error {
		seen = append(seen, -c.Scheduler.MaxConcurrentJobs)
		return nil
	})

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nmax_concurrent_jobs = 6\n"), 0644))
	require.NoError(t, w.Reload())

	// a failing callback does not stop the ones after it
	assert.Equal(t, []int{6, -6}, seen)
}

func TestWatcherReloadKeepsRunningOnInvalidFile(t *testing.T) {
	path := writeConfig(t, "[scheduler]\nmax_concurrent_jobs = 2\n")

	w, err := NewWatcher(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	called := false
	w.OnReload(func(c *Config) error {
		called = true
		return nil
	})

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nmax_concurrent_jobs = -1\n"), 0644))
	require.Error(t, w.Reload())
	assert.False(t, called)
}

func TestWatcherDetectsWrite(t *testing.T) {
	path := writeConfig(t, "[scheduler]\nmax_concurrent_jobs = 2\n")

	w, err := NewWatcher(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	w.debouncePeriod = 100 * time.Millisecond

	reloaded := make(chan int, 4)
	w.OnReload(func(c *Config) error {
		reloaded <- c.Scheduler.MaxConcurrentJobs
		return nil
	})
	w.Start()
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nmax_concurrent_jobs = 4\n"), 0644))

	select {
	case n := <-reloaded:
		assert.Equal(t, 4, n)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not picked up")
	}
}
