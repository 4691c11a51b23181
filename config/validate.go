package config

import (
	"github.com/vrooli/jobs/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}

	if c.Scheduler.MaxConcurrentJobs < 1 {
		return errors.WithHint(
			errors.Newf("scheduler.max_concurrent_jobs must be at least 1, got %d", c.Scheduler.MaxConcurrentJobs),
			"a pool of zero slots would skip every tick",
		)
	}

	if c.Scheduler.HistoryRetentionDays < 0 {
		return errors.Newf("scheduler.history_retention_days must be non-negative, got %d", c.Scheduler.HistoryRetentionDays)
	}

	if c.Moderation.EscalationTimeoutHours < 1 {
		return errors.Newf("moderation.escalation_timeout_hours must be positive, got %d", c.Moderation.EscalationTimeoutHours)
	}

	if c.Reminders.WindowHours < 1 {
		return errors.Newf("reminders.window_hours must be positive, got %d", c.Reminders.WindowHours)
	}

	switch c.Cache.Backend {
	case "memory":
	case "nats":
		if c.Cache.Bucket == "" {
			return errors.New("cache.bucket is required for the nats cache backend")
		}
		if c.NATS.URL == "" {
			return errors.New("nats.url is required for the nats cache backend")
		}
	default:
		return errors.Newf("cache.backend must be memory or nats, got %q", c.Cache.Backend)
	}

	switch c.Notify.Backend {
	case "log":
	case "nats":
		if c.NATS.URL == "" {
			return errors.New("nats.url is required for the nats notify backend")
		}
		if c.Notify.SubjectPrefix == "" {
			return errors.New("notify.subject_prefix is required for the nats notify backend")
		}
	default:
		return errors.Newf("notify.backend must be log or nats, got %q", c.Notify.Backend)
	}

	if c.Notify.MaxPerSecond < 0 {
		return errors.Newf("notify.max_per_second must be non-negative, got %v", c.Notify.MaxPerSecond)
	}

	return nil
}
