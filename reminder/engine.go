package reminder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vrooli/jobs/cache"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/notify"
	"github.com/vrooli/jobs/pulse/batch"
)

// DefaultWindow is the daily cadence plus an hour of margin.
// Dedup entries live exactly as long, so a key never outlives the period in
// which its occurrence could be derived again.
const DefaultWindow = 25 * time.Hour

// Options configures an Engine. Cache and Dispatcher are required.
type Options struct {
	Window     time.Duration
	Cache      cache.Cache
	Dispatcher notify.Dispatcher
	Metrics    *metrics.Metrics
	Logger     *zap.SugaredLogger
	Now        func() time.Time // Injectable for testing
}

// Summary counts what one run did
type Summary struct {
	Schedules   int // schedules examined
	Occurrences int // occurrences in the window
	Sent        int // subscriber reminders dispatched
	Duplicates  int // subscriber reminders already sent earlier
	Failures    int // occurrences whose dispatch failed
}

// Engine sends reminders for occurrences starting within the window
type Engine struct {
	store      *Store
	window     time.Duration
	cache      cache.Cache
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewEngine creates a reminder engine over store
func NewEngine(store *Store, opts Options) *Engine {
	e := &Engine{
		store:      store,
		window:     opts.Window,
		cache:      opts.Cache,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if e.window <= 0 {
		e.window = DefaultWindow
	}
	if e.logger == nil {
		e.logger = logger.ComponentLogger("reminder")
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Run is the scheduled job body
func (e *Engine) Run(ctx context.Context, schedule string) error {
	summary, err := e.Process(ctx)
	if err != nil {
		return errors.Wrap(err, "reminder scan failed")
	}
	logger.FromContext(ctx, e.logger).Infow("Reminder scan finished",
		logger.FieldSchedule, schedule,
		"schedules", summary.Schedules,
		"occurrences", summary.Occurrences,
		"sent", summary.Sent,
		"duplicates", summary.Duplicates,
		"failures", summary.Failures)
	return nil
}

// Process scans the schedules active in the window once
func (e *Engine) Process(ctx context.Context) (Summary, error) {
	now := e.now()
	to := now.Add(e.window)

	var (
		mu      sync.Mutex
		summary Summary
	)
	add := func(s Summary) {
		mu.Lock()
		defer mu.Unlock()
		summary.Schedules += s.Schedules
		summary.Occurrences += s.Occurrences
		summary.Sent += s.Sent
		summary.Duplicates += s.Duplicates
		summary.Failures += s.Failures
	}

	err := batch.Batch(ctx, e.store.Source(), ActiveSchedules(now, to), func(ctx context.Context, page []Fetched) error {
		log := logger.FromContext(ctx, e.logger)

		schedules := make([]Schedule, 0, len(page))
		ids := make([]string, 0, len(page))
		for _, f := range page {
			if f.Err != nil {
				log.Warnw("Skipping malformed schedule", logger.FieldScheduleID, f.ID, logger.FieldError, f.Err)
				continue
			}
			schedules = append(schedules, f.Schedule)
			ids = append(ids, f.ID)
		}

		details, err := e.store.Details(ctx, ids)
		if err != nil {
			return err
		}
		for i := range schedules {
			id := schedules[i].ID
			schedules[i].Recurrences = details.Recurrences[id]
			schedules[i].Exceptions = details.Exceptions[id]
			schedules[i].Subscriptions = details.Subscriptions[id]
		}

		return batch.FanOut(ctx, schedules, func(ctx context.Context, s Schedule) error {
			add(e.remind(ctx, s, now, to))
			return nil
		})
	})
	return summary, err
}

// remind handles one schedule. Failures are logged and counted, never returned,
// so one schedule cannot stop the others.
func (e *Engine) remind(ctx context.Context, s Schedule, now, to time.Time) Summary {
	sum := Summary{Schedules: 1}
	log := logger.FromContext(ctx, e.logger).With(logger.FieldScheduleID, s.ID)

	var subscribed []Subscription
	for _, sub := range s.Subscriptions {
		if len(sub.Preferences.Reminders) > 0 {
			subscribed = append(subscribed, sub)
		}
	}
	if len(subscribed) == 0 {
		return sum
	}

	for _, occ := range Occurrences(s, now, to) {
		sum.Occurrences++

		var recipients []notify.Recipient
		for _, sub := range subscribed {
			key := DedupKey(s.ID, occ.Start, sub.SubscriberID)
			_, sent, err := e.cache.Get(ctx, key)
			if err != nil {
				log.Warnw("Reminder cache read failed, skipping subscriber",
					logger.FieldUserID, sub.SubscriberID, logger.FieldError, err)
				continue
			}
			if sent {
				sum.Duplicates++
				e.metrics.ReminderDedupHit()
				continue
			}
			recipients = append(recipients, notify.Recipient{
				UserID: sub.SubscriberID,
				Delays: Delays(occ.Start, sub.Preferences, now),
			})
		}
		if len(recipients) == 0 {
			continue
		}

		err := e.dispatcher.SendReminder(ctx, notify.Reminder{
			ScheduleID:      s.ID,
			ObjectType:      s.ObjectType,
			ObjectID:        s.ObjectID,
			Title:           s.Title,
			OccurrenceStart: occ.Start,
			OccurrenceEnd:   occ.End,
			Recipients:      recipients,
		})
		if err != nil {
			sum.Failures++
			log.Errorw("Failed to send reminders",
				"occurrence_start", occ.Start,
				logger.FieldCount, len(recipients),
				logger.FieldError, err)
			continue
		}
		sum.Sent += len(recipients)
		e.metrics.RemindersSent(len(recipients))

		// sent reminders are remembered even if the run is being cancelled
		writeCtx := context.WithoutCancel(ctx)
		for _, r := range recipients {
			key := DedupKey(s.ID, occ.Start, r.UserID)
			if err := e.cache.Set(writeCtx, key, "1", e.window); err != nil {
				log.Warnw("Failed to remember sent reminder",
					logger.FieldUserID, r.UserID, logger.FieldError, err)
			}
		}
	}
	return sum
}
