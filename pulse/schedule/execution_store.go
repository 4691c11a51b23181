package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/pulse/batch"
)

// ExecutionStore handles persistence of job run history
type ExecutionStore struct {
	db *sql.DB
}

// NewExecutionStore creates a new execution store
func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// ExecutionColumns is the job_runs column list ScanExecution expects
const ExecutionColumns = `id, job, trace_id, status, started_at, completed_at, duration_ms, error_message`

// CreateExecution inserts a run record
func (s *ExecutionStore) CreateExecution(ctx context.Context, exec *Execution) error {
	query := `INSERT INTO job_runs (` + ExecutionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		exec.ID,
		exec.Job,
		exec.TraceID,
		exec.Status,
		db.FormatTime(exec.StartedAt),
		db.NullTime(exec.CompletedAt),
		nullInt64(exec.DurationMs),
		nullString(exec.ErrorMessage),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create execution")
	}
	return nil
}

// UpdateExecution stores the final state of a run
func (s *ExecutionStore) UpdateExecution(ctx context.Context, exec *Execution) error {
	query := `
		UPDATE job_runs
		SET status = ?,
		    completed_at = ?,
		    duration_ms = ?,
		    error_message = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		exec.Status,
		db.NullTime(exec.CompletedAt),
		nullInt64(exec.DurationMs),
		nullString(exec.ErrorMessage),
		exec.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update execution")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError("execution %s", exec.ID)
	}
	return nil
}

// GetExecution retrieves a run by ID
func (s *ExecutionStore) GetExecution(ctx context.Context, id string) (*Execution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ExecutionColumns+` FROM job_runs WHERE id = ?`, id)

	exec, err := ScanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("execution %s", id)
		}
		return nil, errors.Wrap(err, "failed to get execution")
	}
	return exec, nil
}

// ListExecutions returns the most recent runs of a job, newest first.
// An empty job lists runs of every job.
func (s *ExecutionStore) ListExecutions(ctx context.Context, job string, limit int) ([]*Execution, error) {
	query := `SELECT ` + ExecutionColumns + ` FROM job_runs`
	var args []interface{}
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list executions")
	}
	defer rows.Close()

	var executions []*Execution
	for rows.Next() {
		exec, err := ScanExecution(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan execution")
		}
		executions = append(executions, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating executions")
	}
	return executions, nil
}

// LastExecutions returns the newest run of each job keyed by description
func (s *ExecutionStore) LastExecutions(ctx context.Context) (map[string]*Execution, error) {
	query := `
		SELECT ` + ExecutionColumns + `
		FROM job_runs r
		WHERE started_at = (SELECT MAX(started_at) FROM job_runs WHERE job = r.job)
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query last executions")
	}
	defer rows.Close()

	last := make(map[string]*Execution)
	for rows.Next() {
		exec, err := ScanExecution(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan execution")
		}
		last[exec.Job] = exec
	}
	return last, rows.Err()
}

// CleanupOldExecutions deletes runs started before cutoff and returns how many were removed
func (s *ExecutionStore) CleanupOldExecutions(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM job_runs WHERE started_at < ?`, db.FormatTime(cutoff))
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old executions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(deleted), nil
}

// Source pages through job_runs rows selected with ExecutionColumns
func (s *ExecutionStore) Source() batch.Source[*Execution] {
	return batch.NewSQLSource(s.db, func(row batch.Row) (*Execution, error) {
		return ScanExecution(row)
	})
}

// ScanExecution reads one job_runs row selected with ExecutionColumns
func ScanExecution(row interface{ Scan(dest ...any) error }) (*Execution, error) {
	var exec Execution
	var startedAt string
	var completedAt, errorMessage sql.NullString
	var durationMs sql.NullInt64

	if err := row.Scan(
		&exec.ID,
		&exec.Job,
		&exec.TraceID,
		&exec.Status,
		&startedAt,
		&completedAt,
		&durationMs,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	var err error
	if exec.StartedAt, err = db.ParseTime(startedAt); err != nil {
		return nil, err
	}
	if exec.CompletedAt, err = db.ParseNullTime(completedAt); err != nil {
		return nil, err
	}
	if durationMs.Valid {
		d := durationMs.Int64
		exec.DurationMs = &d
	}
	if errorMessage.Valid {
		exec.ErrorMessage = &errorMessage.String
	}
	return &exec, nil
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
