package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrooli/jobs/errors"
	jobstest "github.com/vrooli/jobs/internal/testing"
	"github.com/vrooli/jobs/pulse/batch"
)

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func running(id, job string, startedAt time.Time) *Execution {
	return &Execution{
		ID:        id,
		Job:       job,
		TraceID:   "trace-" + id,
		Status:    ExecutionStatusRunning,
		StartedAt: startedAt,
	}
}

func finish(exec *Execution, status string, d time.Duration, msg string) {
	completed := exec.StartedAt.Add(d)
	ms := d.Milliseconds()
	exec.Status = status
	exec.CompletedAt = &completed
	exec.DurationMs = &ms
	if msg != "" {
		exec.ErrorMessage = &msg
	}
}

func TestCreateExecution(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	ctx := context.Background()

	exec := running("run1", "Moderate reports", base)
	require.NoError(t, store.CreateExecution(ctx, exec))

	retrieved, err := store.GetExecution(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, "Moderate reports", retrieved.Job)
	assert.Equal(t, "trace-run1", retrieved.TraceID)
	assert.Equal(t, ExecutionStatusRunning, retrieved.Status)
	assert.True(t, base.Equal(retrieved.StartedAt))
	assert.Nil(t, retrieved.CompletedAt)
	assert.Nil(t, retrieved.DurationMs)
	assert.Nil(t, retrieved.ErrorMessage)
}

func TestUpdateExecution(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	ctx := context.Background()

	exec := running("run1", "Moderate reports", base)
	require.NoError(t, store.CreateExecution(ctx, exec))

	finish(exec, ExecutionStatusFailed, 1500*time.Millisecond, "boom")
	require.NoError(t, store.UpdateExecution(ctx, exec))

	retrieved, err := store.GetExecution(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusFailed, retrieved.Status)
	require.NotNil(t, retrieved.CompletedAt)
	assert.True(t, base.Add(1500*time.Millisecond).Equal(*retrieved.CompletedAt))
	assert.Equal(t, int64(1500), *retrieved.DurationMs)
	assert.Equal(t, "boom", *retrieved.ErrorMessage)
}

func TestUpdateExecutionNotFound(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	err := store.UpdateExecution(context.Background(), running("missing", "x", base))
	assert.True(t, errors.IsNotFoundError(err))

	_, err = store.GetExecution(context.Background(), "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListAndLastExecutions(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateExecution(ctx, running(fmt.Sprintf("mod%d", i), "Moderate reports", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.CreateExecution(ctx, running("rem0", "Schedule reminders", base)))

	list, err := store.ListExecutions(ctx, "Moderate reports", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "mod2", list[0].ID)
	assert.Equal(t, "mod1", list[1].ID)

	all, err := store.ListExecutions(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	last, err := store.LastExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mod2", last["Moderate reports"].ID)
	assert.Equal(t, "rem0", last["Schedule reminders"].ID)
}

func TestCleanupOldExecutions(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.CreateExecution(ctx, running("old", "j", base.Add(-100*24*time.Hour))))
	require.NoError(t, store.CreateExecution(ctx, running("new", "j", base.Add(-time.Hour))))

	deleted, err := store.CleanupOldExecutions(ctx, base.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.GetExecution(ctx, "new")
	assert.NoError(t, err)
}

func TestExecutionSourcePages(t *testing.T) {
	store := NewExecutionStore(jobstest.CreateTestDB(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateExecution(ctx, running(fmt.Sprintf("run%d", i), "j", base)))
	}

	var ids []string
	err := batch.Batch(ctx, store.Source(), batch.Query{Table: "job_runs", Select: ExecutionColumns},
		func(ctx context.Context, page []*Execution) error {
			for _, e := range page {
				ids = append(ids, e.ID)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"run0", "run1", "run2", "run3", "run4"}, ids)
}
