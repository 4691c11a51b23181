package config

import "github.com/spf13/viper"

const (
	// DefaultMaxConcurrentJobs is the process-wide job slot count
	DefaultMaxConcurrentJobs = 3

	// DefaultHistoryRetentionDays is how long job_runs rows are kept
	DefaultHistoryRetentionDays = 90

	// DefaultEscalationTimeoutHours is seven days
	DefaultEscalationTimeoutHours = 168

	// DefaultReminderWindowHours covers a daily cadence plus one hour of margin
	DefaultReminderWindowHours = 25

	DefaultServerAddress = "127.0.0.1:9464"
	DefaultCacheBucket   = "schedule_reminders"
	DefaultSubjectPrefix = "jobsd"

	// DefaultDirPermissions is used for ~/.jobsd
	DefaultDirPermissions = 0755
)

// SetDefaults configures sensible default values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", "jobsd.db")

	v.SetDefault("scheduler.max_concurrent_jobs", DefaultMaxConcurrentJobs)
	v.SetDefault("scheduler.history_retention_days", DefaultHistoryRetentionDays)

	v.SetDefault("moderation.escalation_timeout_hours", DefaultEscalationTimeoutHours)

	v.SetDefault("reminders.window_hours", DefaultReminderWindowHours)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.bucket", DefaultCacheBucket)

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("notify.backend", "log")
	v.SetDefault("notify.subject_prefix", DefaultSubjectPrefix)
	v.SetDefault("notify.max_per_second", 50.0)

	v.SetDefault("server.address", DefaultServerAddress)
}
