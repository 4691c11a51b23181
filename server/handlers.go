package server

import (
	"net/http"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/pulse/schedule"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.getState()
	status := http.StatusOK
	if state != ServerStateRunning {
		status = http.StatusServiceUnavailable
	}
	if err := writeJSON(w, status, map[string]string{"status": stateString(state)}); err != nil {
		s.logger.Warnw("Failed to write health response", "error", err)
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	resp := JobsResponse{
		MaxConcurrent: s.jobs.MaxConcurrent(),
		InUse:         s.jobs.InUse(),
	}

	if stats, err := s.memory(); err != nil {
		s.logger.Debugw("Host memory unavailable", "error", err)
	} else {
		resp.Memory = &stats
	}

	var last map[string]*schedule.Execution
	if s.history != nil {
		var err error
		last, err = s.history.LastExecutions(r.Context())
		if err != nil {
			s.logger.Errorw("Failed to load job history", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load job history")
			return
		}
	}

	infos := s.jobs.Jobs()
	resp.Jobs = make([]JobStatus, 0, len(infos))
	for _, info := range infos {
		resp.Jobs = append(resp.Jobs, JobStatus{JobInfo: info, LastRun: last[info.Description]})
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Warnw("Failed to write jobs response", "error", err)
	}
}

// hostMemory returns current memory usage in bytes
func hostMemory() (MemoryStats, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, errors.Wrap(err, "failed to get memory stats")
	}
	return MemoryStats{Total: v.Total, Available: v.Available}, nil
}
