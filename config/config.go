// Package config loads jobsd configuration from TOML files and JOBSD_* environment variables.
package config

import "time"

// Config represents the complete jobsd configuration
type Config struct {
	Log        LogConfig            `mapstructure:"log" toml:"log"`
	Database   DatabaseConfig       `mapstructure:"database" toml:"database"`
	Scheduler  SchedulerConfig      `mapstructure:"scheduler" toml:"scheduler"`
	Moderation ModerationConfig     `mapstructure:"moderation" toml:"moderation"`
	Reminders  RemindersConfig      `mapstructure:"reminders" toml:"reminders"`
	Cache      CacheConfig          `mapstructure:"cache" toml:"cache"`
	NATS       NATSConfig           `mapstructure:"nats" toml:"nats"`
	Notify     NotifyConfig         `mapstructure:"notify" toml:"notify"`
	Server     ServerConfig         `mapstructure:"server" toml:"server"`
	Jobs       map[string]JobConfig `mapstructure:"jobs" toml:"jobs,omitempty"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	JSON  bool   `mapstructure:"json" toml:"json"`
}

// DatabaseConfig configures the SQLite store
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// SchedulerConfig bounds the scheduler
type SchedulerConfig struct {
	// MaxConcurrentJobs is the number of job bodies allowed to run at once.
	// Ticks beyond this are skipped, not queued.
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs" toml:"max_concurrent_jobs"`

	// HistoryRetentionDays is how long job_runs rows are kept
	HistoryRetentionDays int `mapstructure:"history_retention_days" toml:"history_retention_days"`
}

// ModerationConfig configures report resolution
type ModerationConfig struct {
	// EscalationTimeoutHours is the age after which an undecided report
	// has every tallied action boosted past its threshold.
	EscalationTimeoutHours int `mapstructure:"escalation_timeout_hours" toml:"escalation_timeout_hours"`
}

// RemindersConfig configures the schedule reminder scan
type RemindersConfig struct {
	WindowHours int `mapstructure:"window_hours" toml:"window_hours"`
}

// CacheConfig selects the dedup cache backend
type CacheConfig struct {
	Backend string `mapstructure:"backend" toml:"backend"` // "memory" or "nats"
	Bucket  string `mapstructure:"bucket" toml:"bucket"`
}

// NATSConfig holds the NATS connection used by the nats cache and notify backends
type NATSConfig struct {
	URL string `mapstructure:"url" toml:"url"`
}

// NotifyConfig selects where reminders and activity events go
type NotifyConfig struct {
	Backend       string  `mapstructure:"backend" toml:"backend"` // "log" or "nats"
	SubjectPrefix string  `mapstructure:"subject_prefix" toml:"subject_prefix"`
	MaxPerSecond  float64 `mapstructure:"max_per_second" toml:"max_per_second"`
}

// ServerConfig configures the operational HTTP endpoint
type ServerConfig struct {
	Address string `mapstructure:"address" toml:"address"`
}

// JobConfig overrides a catalog job, keyed by the job's config key
type JobConfig struct {
	Schedule     string `mapstructure:"schedule" toml:"schedule,omitempty"`
	Enabled      *bool  `mapstructure:"enabled" toml:"enabled,omitempty"`
	RunOnStartup bool   `mapstructure:"run_on_startup" toml:"run_on_startup"`
}

// IsEnabled reports whether the job should be registered (default true)
func (j JobConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// Job returns the override for key, or the zero JobConfig
func (c *Config) Job(key string) JobConfig {
	if c == nil || c.Jobs == nil {
		return JobConfig{}
	}
	return c.Jobs[key]
}

// EscalationTimeout returns the moderation escalation timeout as a duration
func (c *Config) EscalationTimeout() time.Duration {
	return time.Duration(c.Moderation.EscalationTimeoutHours) * time.Hour
}

// ReminderWindow returns the reminder scan window as a duration
func (c *Config) ReminderWindow() time.Duration {
	return time.Duration(c.Reminders.WindowHours) * time.Hour
}

// HistoryRetention returns how long job history is kept
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.Scheduler.HistoryRetentionDays) * 24 * time.Hour
}
