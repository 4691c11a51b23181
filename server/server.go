// Package server exposes the operational HTTP endpoints of jobsd:
// health, prometheus metrics and the job table.
package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/pulse/schedule"
)

// JobLister is the part of the scheduler the server reads
type JobLister interface {
	Jobs() []schedule.JobInfo
	MaxConcurrent() int
	InUse() int
}

// HistoryReader returns the newest recorded run of each job
type HistoryReader interface {
	LastExecutions(ctx context.Context) (map[string]*schedule.Execution, error)
}

// Options configures a Server. Jobs is required.
type Options struct {
	Address  string
	Jobs     JobLister
	History  HistoryReader
	Gatherer prometheus.Gatherer
	Logger   *zap.SugaredLogger

	// Memory reports host memory; nil uses gopsutil
	Memory func() (MemoryStats, error)
}

// Server serves /healthz, /metrics and /jobs
type Server struct {
	httpServer *http.Server
	router     chi.Router
	jobs       JobLister
	history    HistoryReader
	memory     func() (MemoryStats, error)
	logger     *zap.SugaredLogger
	state      atomic.Int32
	addr       string
}

// New builds the router. Nothing listens until Start.
func New(opts Options) *Server {
	s := &Server{
		jobs:    opts.Jobs,
		history: opts.History,
		memory:  opts.Memory,
		logger:  opts.Logger,
	}
	if s.logger == nil {
		s.logger = logger.ComponentLogger("server")
	}
	if s.memory == nil {
		s.memory = hostMemory
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)
	r.Get("/healthz", s.handleHealth)
	r.Get("/jobs", s.handleJobs)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router = r

	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.state.Store(int32(ServerStateRunning))
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}
