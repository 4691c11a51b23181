package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/pulse/budget"
)

// Recorder persists run history. *ExecutionStore implements it.
type Recorder interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
}

// Options configures a Scheduler. Only MaxConcurrent is required.
type Options struct {
	MaxConcurrent int
	Recorder      Recorder
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
	Now           func() time.Time // Injectable for testing
}

// JobInfo describes a registered job for status output
type JobInfo struct {
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	Valid       bool      `json:"valid"`
	Error       string    `json:"error,omitempty"`
	Running     bool      `json:"running"`
	Next        time.Time `json:"next,omitempty"` // zero for invalid schedules
}

type entry struct {
	def      Definition
	schedule cron.Schedule
	err      error
}

type run struct {
	entry   *entry
	ctx     context.Context
	log     *zap.SugaredLogger
	traceID string
	start   time.Time
}

// Scheduler owns the job registry, the per-job reentrancy guard and the
// concurrency slot pool. Each tick either runs the job body or is skipped;
// skipped ticks are not queued or retried.
type Scheduler struct {
	cron     *cron.Cron
	state    *RunState
	slots    *budget.Slots
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // in-flight job bodies
}

// New creates a scheduler. Nothing fires until Start.
func New(opts Options) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("pulse.schedule")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	max := opts.MaxConcurrent
	if max < 1 {
		max = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{log}),
		),
		state:    NewRunState(),
		slots:    budget.NewSlots(max),
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   log,
		now:      now,
		entries:  make(map[string]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a job. A malformed cron expression is logged and returned;
// the job stays listed but never fires. Duplicate descriptions are rejected.
func (s *Scheduler) Register(def Definition) error {
	if def.Description == "" {
		err := errors.NewInvalidRequestError("job description is required")
		s.logger.Errorw("Job registration rejected", logger.FieldError, err)
		return err
	}
	if def.Job == nil {
		err := errors.NewInvalidRequestError("job %q has no body", def.Description)
		s.logger.Errorw("Job registration rejected", logger.FieldJob, def.Description, logger.FieldError, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[def.Description]; exists {
		err := errors.NewInvalidRequestError("job %q is already registered", def.Description)
		s.logger.Errorw("Duplicate job registration rejected", logger.FieldJob, def.Description)
		return err
	}

	e := &entry{def: def}
	sched, err := ParseCron(def.Schedule)
	if err != nil {
		e.err = err
		s.logger.Errorw("Invalid cron expression, job will never run",
			logger.FieldJob, def.Description,
			logger.FieldSchedule, def.Schedule,
			logger.FieldError, err)
	} else {
		e.schedule = sched
	}

	s.entries[def.Description] = e
	s.order = append(s.order, def.Description)

	if s.started && e.err == nil {
		s.addToCron(e)
	}
	return err
}

// Start fires run-right-away jobs once, then starts the cron engine.
// Cancelling ctx cancels the context handed to job bodies.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	entries := s.snapshotLocked()
	s.mu.Unlock()

	context.AfterFunc(ctx, s.cancel)

	for _, e := range entries {
		if e.err != nil || e.def.RunRightAway == nil || !e.def.RunRightAway() {
			continue
		}
		// Guards are taken here so a cron tick racing the startup run is skipped
		r, _ := s.begin(e)
		if r == nil {
			continue
		}
		go s.execute(r)
	}

	valid := 0
	for _, e := range entries {
		if e.err == nil {
			s.addToCron(e)
			valid++
		}
	}
	s.cron.Start()

	s.logger.Infow("Scheduler started",
		logger.FieldCount, valid,
		logger.FieldMax, s.slots.Max())
}

// Trigger runs one tick of the named job through the reentrancy and capacity
// guards and blocks until the body returns. Cron ticks and manual runs both use it.
func (s *Scheduler) Trigger(description string) Outcome {
	s.mu.Lock()
	e, ok := s.entries[description]
	s.mu.Unlock()

	if !ok {
		s.logger.Warnw("Trigger for unknown job", logger.FieldJob, description)
		return OutcomeUnschedulable
	}
	if e.err != nil {
		s.logger.Warnw("Trigger for job with invalid schedule",
			logger.FieldJob, description,
			logger.FieldError, e.err)
		return OutcomeUnschedulable
	}

	r, outcome := s.begin(e)
	if r == nil {
		return outcome
	}
	return s.execute(r)
}

// Stop stops the cron engine, cancels running bodies' context and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.logger.Infow("Scheduler stopped")
}

// SetMaxConcurrent resizes the slot pool at runtime
func (s *Scheduler) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	previous := s.slots.Max()
	s.slots.SetMax(n)
	if previous != n {
		s.logger.Infow("Max concurrent jobs changed", "previous", previous, logger.FieldMax, n)
	}
}

// MaxConcurrent returns the slot pool size
func (s *Scheduler) MaxConcurrent() int {
	return s.slots.Max()
}

// InUse returns how many job bodies hold a slot
func (s *Scheduler) InUse() int {
	return s.slots.InUse()
}

// IsRunning reports whether the named job's body is executing
func (s *Scheduler) IsRunning(description string) bool {
	return s.state.IsRunning(description)
}

// Jobs lists registered jobs in registration order
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	entries := s.snapshotLocked()
	s.mu.Unlock()

	now := s.now().UTC()
	infos := make([]JobInfo, 0, len(entries))
	for _, e := range entries {
		info := JobInfo{
			Description: e.def.Description,
			Schedule:    e.def.Schedule,
			Valid:       e.err == nil,
			Running:     s.state.IsRunning(e.def.Description),
		}
		if e.err != nil {
			info.Error = e.err.Error()
		} else {
			info.Next = e.schedule.Next(now)
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *Scheduler) snapshotLocked() []*entry {
	entries := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.entries[name])
	}
	return entries
}

func (s *Scheduler) addToCron(e *entry) {
	description := e.def.Description
	s.cron.Schedule(e.schedule, cron.FuncJob(func() {
		s.Trigger(description)
	}))
}

// begin takes the reentrancy flag and a slot, in that order. A nil run means
// the tick was skipped and the returned outcome says why.
func (s *Scheduler) begin(e *entry) (*run, Outcome) {
	description := e.def.Description
	log := s.logger.With(logger.FieldJob, description)

	if !s.state.TryStart(description) {
		log.Warnw("Job still running, skipping tick")
		s.metrics.RunSkipped(description, "running")
		return nil, OutcomeSkippedRunning
	}

	if err := s.slots.Acquire(); err != nil {
		s.state.Finish(description)
		log.Warnw("Concurrency limit reached, skipping tick",
			logger.FieldInUse, s.slots.InUse(),
			logger.FieldMax, s.slots.Max(),
			logger.FieldError, err)
		s.metrics.RunSkipped(description, "capacity")
		return nil, OutcomeSkippedCapacity
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.slots.Release()
		s.state.Finish(description)
		log.Warnw("Scheduler stopping, skipping tick")
		return nil, OutcomeUnschedulable
	}
	s.wg.Add(1)
	s.mu.Unlock()

	traceID := uuid.NewString()
	ctx := logger.WithTraceID(logger.WithJob(s.ctx, description), traceID)
	s.metrics.RunStarted()

	return &run{
		entry:   e,
		ctx:     ctx,
		log:     log.With(logger.FieldTraceID, traceID),
		traceID: traceID,
		start:   s.now(),
	}, ""
}

// execute runs the body and records the result. The flag and the slot are
// released on every path, including a panicking body.
func (s *Scheduler) execute(r *run) (outcome Outcome) {
	description := r.entry.def.Description
	defer func() {
		s.state.Finish(description)
		s.slots.Release()
		s.wg.Done()
	}()

	r.log.Infow("Job started", logger.FieldSchedule, r.entry.def.Schedule)

	exec := &Execution{
		ID:        uuid.NewString(),
		Job:       description,
		TraceID:   r.traceID,
		Status:    ExecutionStatusRunning,
		StartedAt: r.start,
	}
	recorded := true
	if s.recorder != nil {
		if err := s.recorder.CreateExecution(r.ctx, exec); err != nil {
			recorded = false
			r.log.Warnw("Failed to record job start", logger.FieldError, err)
		}
	}

	err := invoke(r.ctx, r.entry.def)

	completedAt := s.now()
	duration := completedAt.Sub(r.start)
	durationMs := duration.Milliseconds()
	exec.CompletedAt = &completedAt
	exec.DurationMs = &durationMs

	if err != nil {
		outcome = OutcomeFailed
		exec.Status = ExecutionStatusFailed
		msg := err.Error()
		exec.ErrorMessage = &msg
		r.log.Errorw("Job failed",
			logger.FieldDurationMS, durationMs,
			logger.FieldError, err)
	} else {
		outcome = OutcomeCompleted
		exec.Status = ExecutionStatusCompleted
		r.log.Infow("Job completed", logger.FieldDurationMS, durationMs)
	}
	s.metrics.RunFinished(description, exec.Status, duration)

	if s.recorder != nil && recorded {
		// Shutdown cancels r.ctx; the final state should still land
		if err := s.recorder.UpdateExecution(context.WithoutCancel(r.ctx), exec); err != nil {
			if db.IsDatabaseClosed(err) {
				r.log.Debugw("Database closed before job result was recorded")
			} else {
				r.log.Warnw("Failed to record job result", logger.FieldError, err)
			}
		}
	}
	return outcome
}

// invoke calls the body, turning a panic into an error
func invoke(ctx context.Context, def Definition) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("job panicked: %v", rec)
		}
	}()
	return def.Job(ctx, def.Schedule)
}

// cronLogger routes robfig/cron's own logging into zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(fmt.Sprintf("cron: %s", msg), append(keysAndValues, logger.FieldError, err)...)
}
