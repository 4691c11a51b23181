// Package jobs is the catalog of scheduled jobs jobsd runs.
package jobs

import (
	"go.uber.org/zap"

	"github.com/vrooli/jobs/config"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/pulse/schedule"
)

// Config keys of the catalog jobs ([jobs.<key>] in jobsd.toml)
const (
	KeyModerateReports   = "moderate_reports"
	KeyScheduleReminders = "schedule_reminders"
	KeyPruneHistory      = "prune_job_history"
	KeyRunStatistics     = "job_run_statistics"
)

// Entry is one catalog job before configuration is applied
type Entry struct {
	Key         string
	Description string
	Schedule    string
	Job         schedule.Func
}

// Catalog lists every job with its default schedule. Bodies come from deps.
func Catalog(deps Deps) []Entry {
	return []Entry{
		{
			Key:         KeyModerateReports,
			Description: "Moderate reports",
			Schedule:    "0 * * * *",
			Job:         deps.Moderation.Run,
		},
		{
			Key:         KeyScheduleReminders,
			Description: "Schedule reminders",
			Schedule:    "0 0 * * *",
			Job:         deps.Reminders.Run,
		},
		{
			Key:         KeyPruneHistory,
			Description: "Prune job history",
			Schedule:    "30 3 * * *",
			Job:         PruneHistory(deps.History, deps.Config.HistoryRetention(), deps.now()),
		},
		{
			Key:         KeyRunStatistics,
			Description: "Job run statistics",
			Schedule:    "15 * * * *",
			Job:         RunStatistics(deps.History, deps.Metrics),
		},
	}
}

// Definitions applies cfg's [jobs.<key>] overrides to entries.
// Disabled jobs are left out.
func Definitions(entries []Entry, cfg *config.Config) []schedule.Definition {
	defs := make([]schedule.Definition, 0, len(entries))
	for _, e := range entries {
		jc := cfg.Job(e.Key)
		if !jc.IsEnabled() {
			continue
		}

		def := schedule.Definition{
			Schedule:    e.Schedule,
			Job:         e.Job,
			Description: e.Description,
		}
		if jc.Schedule != "" {
			def.Schedule = jc.Schedule
		}
		if jc.RunOnStartup {
			def.RunRightAway = func() bool { return true }
		}
		defs = append(defs, def)
	}
	return defs
}

// Register adds every definition to s. A job with an invalid schedule is
// still listed but never fires; the first such error is returned after all
// definitions have been registered.
func Register(s *schedule.Scheduler, defs []schedule.Definition, log *zap.SugaredLogger) error {
	if log == nil {
		log = logger.ComponentLogger("jobs")
	}

	var first error
	for _, def := range defs {
		if err := s.Register(def); err != nil && first == nil {
			first = err
		}
	}
	log.Infow("Jobs registered", logger.FieldCount, len(defs))
	return first
}

// Find returns the catalog entry whose key or description is name
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Key == name || e.Description == name {
			return e, true
		}
	}
	return Entry{}, false
}
