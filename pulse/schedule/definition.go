// Package schedule runs registered jobs on cron schedules without letting
// them overlap or exceed the process-wide concurrency budget.
package schedule

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/vrooli/jobs/errors"
)

// Func is a job body. schedule is the cron expression the job was registered with.
type Func func(ctx context.Context, schedule string) error

// Definition describes one scheduled job. Description is its unique key.
type Definition struct {
	Schedule    string
	Job         Func
	Description string

	// RunRightAway, when set and returning true at Start, fires the job once
	// before the cron engine starts.
	RunRightAway func() bool
}

// Outcome is what happened to a single trigger of a job
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeFailed          Outcome = "failed"
	OutcomeSkippedRunning  Outcome = "skipped_running"
	OutcomeSkippedCapacity Outcome = "skipped_capacity"
	OutcomeUnschedulable   Outcome = "unschedulable"
)

// Skipped reports whether the trigger did not run the job body
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedRunning || o == OutcomeSkippedCapacity || o == OutcomeUnschedulable
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a standard 5-field expression or a descriptor such as @hourly.
// Errors wrap errors.ErrInvalidCron.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.WithDetail(errors.Wrapf(errors.ErrInvalidCron, "%q", expr), err.Error())
	}
	return sched, nil
}
