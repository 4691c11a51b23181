package jobs

import (
	"context"
	"time"

	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/pulse/batch"
	"github.com/vrooli/jobs/pulse/schedule"
)

// PruneHistory deletes job runs older than retention. A zero retention keeps everything.
func PruneHistory(store *schedule.ExecutionStore, retention time.Duration, now func() time.Time) schedule.Func {
	return func(ctx context.Context, _ string) error {
		if retention <= 0 {
			return nil
		}
		deleted, err := store.CleanupOldExecutions(ctx, now().Add(-retention))
		if err != nil {
			return err
		}
		logger.FromContext(ctx, nil).Infow("Pruned job history",
			logger.FieldCount, deleted,
			"retention_days", int(retention/(24*time.Hour)))
		return nil
	}
}

type runTotals struct {
	durationMs int64
	count      int64
}

// RunStats is the accumulator of the statistics scan
type RunStats struct {
	totals   map[string]*runTotals
	Averages map[string]time.Duration
}

// CompletedRuns is the scan over finished runs that have a duration
func CompletedRuns() batch.Query {
	return batch.Query{
		Table:  "job_runs",
		Select: schedule.ExecutionColumns,
		Where:  "status = ? AND duration_ms IS NOT NULL",
		Args:   []any{schedule.ExecutionStatusCompleted},
	}
}

// AverageDurations sums the durations of completed runs per job and divides
// them by the run count once the scan ends
func AverageDurations(ctx context.Context, src batch.Source[*schedule.Execution]) (map[string]time.Duration, error) {
	stats, err := batch.Group(ctx, src, CompletedRuns(),
		RunStats{totals: make(map[string]*runTotals)},
		func(ctx context.Context, page []*schedule.Execution, acc *RunStats) error {
			for _, exec := range page {
				t, ok := acc.totals[exec.Job]
				if !ok {
					t = &runTotals{}
					acc.totals[exec.Job] = t
				}
				t.durationMs += *exec.DurationMs
				t.count++
			}
			return nil
		},
		func(acc *RunStats) {
			acc.Averages = make(map[string]time.Duration, len(acc.totals))
			for job, t := range acc.totals {
				acc.Averages[job] = time.Duration(t.durationMs/t.count) * time.Millisecond
			}
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate job runs")
	}
	return stats.Averages, nil
}

// RunStatistics publishes the average run duration of every job
func RunStatistics(store *schedule.ExecutionStore, m *metrics.Metrics) schedule.Func {
	return func(ctx context.Context, _ string) error {
		averages, err := AverageDurations(ctx, store.Source())
		if err != nil {
			return err
		}
		for job, avg := range averages {
			m.SetAverageRunDuration(job, avg)
		}
		logger.FromContext(ctx, nil).Infow("Job run statistics updated", logger.FieldCount, len(averages))
		return nil
	}
}
