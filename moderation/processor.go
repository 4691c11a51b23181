package moderation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/notify"
	"github.com/vrooli/jobs/pulse/batch"
)

// Outcome is what happened to one examined report
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeUndecided      Outcome = "undecided"
	OutcomeNeedsReview    Outcome = "needs_review"
	OutcomeRejected       Outcome = "rejected"
	OutcomeNotImplemented Outcome = "not_implemented"
	OutcomeInvalid        Outcome = "invalid"
	OutcomeFailed         Outcome = "failed"
)

// Summary counts outcomes for one run
type Summary map[Outcome]int

// Total is the number of reports examined
func (s Summary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Options configures a Processor
type Options struct {
	EscalationTimeout time.Duration
	Dispatcher        notify.Dispatcher
	Metrics           *metrics.Metrics
	Logger            *zap.SugaredLogger
	Now               func() time.Time // Injectable for testing
}

// Processor scans open reports and acts on the ones the community has decided
type Processor struct {
	store      *Store
	timeout    time.Duration
	dispatcher notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewProcessor creates a processor over store
func NewProcessor(store *Store, opts Options) *Processor {
	p := &Processor{
		store:      store,
		timeout:    opts.EscalationTimeout,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultEscalationTimeout
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("moderation")
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run is the scheduled job body
func (p *Processor) Run(ctx context.Context, schedule string) error {
	summary, err := p.Process(ctx)
	log := logger.FromContext(ctx, p.logger)
	if err != nil {
		return errors.Wrap(err, "moderation scan failed")
	}
	log.Infow("Moderation scan finished",
		logger.FieldSchedule, schedule,
		logger.FieldCount, summary.Total(),
		string(OutcomeAccepted), summary[OutcomeAccepted],
		string(OutcomeUndecided), summary[OutcomeUndecided],
		string(OutcomeNeedsReview), summary[OutcomeNeedsReview],
		string(OutcomeRejected), summary[OutcomeRejected],
		string(OutcomeNotImplemented), summary[OutcomeNotImplemented],
		string(OutcomeInvalid), summary[OutcomeInvalid],
		string(OutcomeFailed), summary[OutcomeFailed])
	return nil
}

// Process scans every open report once. The returned summary is partial when
// err is non-nil.
func (p *Processor) Process(ctx context.Context) (Summary, error) {
	runStart := p.now()
	summary := make(Summary)

	err := batch.Batch(ctx, p.store.Source(), OpenReports(runStart), func(ctx context.Context, page []Fetched) error {
		ids := make([]string, 0, len(page))
		for _, f := range page {
			if f.Status == StatusOpen {
				ids = append(ids, f.ID)
			}
		}
		responses, err := p.store.Responses(ctx, ids)
		if err != nil {
			return err
		}

		for _, f := range page {
			if f.Status != StatusOpen {
				continue
			}
			outcome := p.handle(ctx, f, responses[f.ID])
			summary[outcome]++
			p.metrics.ModerationOutcome(string(outcome))
		}
		return nil
	})
	return summary, err
}

func (p *Processor) handle(ctx context.Context, f Fetched, raw []RawResponse) Outcome {
	log := logger.FromContext(ctx, p.logger).With(logger.FieldReportID, f.ID)

	if f.Err != nil {
		log.Warnw("Skipping malformed report", logger.FieldError, f.Err)
		return OutcomeInvalid
	}

	report := f.Report
	report.Responses = make([]Response, 0, len(raw))
	for _, r := range raw {
		action, err := ParseAction(r.Action)
		if err != nil {
			log.Warnw("Skipping report with invalid response",
				"response_id", r.ID,
				logger.FieldError, err)
			return OutcomeInvalid
		}
		report.Responses = append(report.Responses, Response{
			ID:          r.ID,
			ResponderID: r.ResponderID,
			Action:      action,
			Reputation:  r.Reputation,
		})
	}

	now := p.now()
	decision := Decide(report, now, p.timeout)
	if !decision.Decided {
		return OutcomeUndecided
	}
	log = log.With(logger.FieldAction, decision.Action)

	if report.Object == nil {
		log.Warnw("Report needs manual review: no reported object")
		return OutcomeNeedsReview
	}
	log = log.With(
		logger.FieldObjectType, report.Object.Type(),
		logger.FieldObjectID, report.Object.ObjectID())

	owner, ok := report.Object.Owner()
	if !ok {
		log.Warnw("Report needs manual review: reported object has no owner")
		return OutcomeNeedsReview
	}

	effect, err := Plan(decision.Action, report.Object)
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		log.Warnw("Rejected moderation action", logger.FieldError, err)
		return OutcomeRejected
	case errors.IsNotImplementedError(err):
		log.Warnw("Moderation action not implemented", logger.FieldError, err)
		return OutcomeNotImplemented
	case err != nil:
		log.Warnw("Invalid moderation action", logger.FieldError, err)
		return OutcomeInvalid
	}

	status, err := StatusFor(decision.Action)
	if err != nil {
		log.Warnw("Invalid moderation action", logger.FieldError, err)
		return OutcomeInvalid
	}

	if err := p.store.Resolve(ctx, report.ID, status, effect, now); err != nil {
		log.Errorw("Failed to resolve report", logger.FieldError, err)
		return OutcomeFailed
	}

	event := notify.ActivityEvent{
		ReportID:     report.ID,
		ObjectID:     report.Object.ObjectID(),
		ObjectType:   string(report.Object.Type()),
		OwnerID:      owner.ID,
		OwnerKind:    string(owner.Kind),
		Contributors: report.Contributors(decision.Action),
		Status:       string(status),
	}
	if p.dispatcher != nil {
		// the report is already closed; a lost event is not retried
		if err := p.dispatcher.SendActivityEvent(context.WithoutCancel(ctx), event); err != nil {
			log.Warnw("Failed to send moderation activity event", logger.FieldError, err)
		}
	}

	log.Infow("Report resolved",
		logger.FieldStatus, status,
		"effect", effect.Kind.String(),
		"escalated", decision.Escalated)
	return OutcomeAccepted
}
