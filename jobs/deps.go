package jobs

import (
	"time"

	"github.com/vrooli/jobs/config"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/moderation"
	"github.com/vrooli/jobs/pulse/schedule"
	"github.com/vrooli/jobs/reminder"
)

// Deps are the collaborators catalog jobs run against
type Deps struct {
	Config     *config.Config
	Moderation *moderation.Processor
	Reminders  *reminder.Engine
	History    *schedule.ExecutionStore
	Metrics    *metrics.Metrics
	Now        func() time.Time // Injectable for testing
}

func (d Deps) now() func() time.Time {
	if d.Now == nil {
		return time.Now
	}
	return d.Now
}
