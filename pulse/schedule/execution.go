package schedule

import "time"

// Execution is one run of a scheduled job, persisted in job_runs.
// Runs skipped by the guards never start, so they have no Execution.
type Execution struct {
	ID      string `json:"id"`
	Job     string `json:"job"` // job description
	TraceID string `json:"trace_id"`
	Status  string `json:"status"` // "running", "completed", "failed"

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // nil while running
	DurationMs  *int64     `json:"duration_ms,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`
}

// Execution status constants for type safety
const (
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusFailed    = "failed"
)
