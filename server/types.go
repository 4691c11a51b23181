package server

import (
	"time"

	"github.com/vrooli/jobs/pulse/schedule"
)

const (
	// ShutdownTimeout bounds how long in-flight requests get to finish
	ShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 5 * time.Second
)

// ServerState is the lifecycle state reported by /healthz
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// MemoryStats is host memory as reported by the OS
type MemoryStats struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
}

// JobStatus is a registered job plus its most recent recorded run
type JobStatus struct {
	schedule.JobInfo
	LastRun *schedule.Execution `json:"last_run,omitempty"`
}

// JobsResponse is the body of GET /jobs
type JobsResponse struct {
	MaxConcurrent int          `json:"max_concurrent"`
	InUse         int          `json:"in_use"`
	Memory        *MemoryStats `json:"memory,omitempty"`
	Jobs          []JobStatus  `json:"jobs"`
}
