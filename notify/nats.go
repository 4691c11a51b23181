package notify

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/time/rate"

	"github.com/vrooli/jobs/errors"
)

// Publisher is the part of *nats.Conn the NATS dispatcher uses
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes notifications as JSON on
// <prefix>.reminder.<object type> and <prefix>.activity.<object type>.
// Publishing is rate limited so a large reminder page cannot flood subscribers.
type NATS struct {
	pub     Publisher
	prefix  string
	limiter *rate.Limiter
}

// NewNATS creates a publisher. maxPerSecond <= 0 disables rate limiting.
func NewNATS(pub Publisher, prefix string, maxPerSecond float64) *NATS {
	limit, burst := rate.Inf, 1
	if maxPerSecond > 0 {
		limit = rate.Limit(maxPerSecond)
		burst = int(maxPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &NATS{
		pub:     pub,
		prefix:  prefix,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// SendReminder publishes the reminder
func (n *NATS) SendReminder(ctx context.Context, r Reminder) error {
	return n.publish(ctx, n.Subject("reminder", r.ObjectType), r)
}

// SendActivityEvent publishes the event
func (n *NATS) SendActivityEvent(ctx context.Context, e ActivityEvent) error {
	return n.publish(ctx, n.Subject("activity", e.ObjectType), e)
}

// Subject builds the subject for a kind of notification about an object type
func (n *NATS) Subject(kind, objectType string) string {
	token := strings.ToLower(objectType)
	if token == "" {
		token = "unknown"
	}
	return n.prefix + "." + kind + "." + token
}

func (n *NATS) publish(ctx context.Context, subject string, v any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limit wait for %s", subject)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", subject)
	}
	if err := n.pub.Publish(subject, data); err != nil {
		return errors.Wrapf(err, "publish %s", subject)
	}
	return nil
}
