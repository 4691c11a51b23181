// Package notify hands reminders and moderation activity to the delivery layer.
// Delivery channels (email, push) live elsewhere; this package only publishes.
package notify

import (
	"context"
	"time"
)

// Recipient is one subscriber of a reminder and the delays at which they
// asked to be reminded, measured from the moment the reminder is sent.
type Recipient struct {
	UserID string          `json:"user_id"`
	Delays []time.Duration `json:"delays"`
}

// Reminder asks the delivery layer to remind recipients of one occurrence
type Reminder struct {
	ScheduleID      string      `json:"schedule_id"`
	ObjectType      string      `json:"object_type"`
	ObjectID        string      `json:"object_id,omitempty"`
	Title           string      `json:"title,omitempty"`
	OccurrenceStart time.Time   `json:"occurrence_start"`
	OccurrenceEnd   time.Time   `json:"occurrence_end"`
	Recipients      []Recipient `json:"recipients"`
}

// ActivityEvent reports a moderation decision to the owner and contributors
type ActivityEvent struct {
	ReportID     string   `json:"report_id"`
	ObjectID     string   `json:"object_id"`
	ObjectType   string   `json:"object_type"`
	OwnerID      string   `json:"owner_id"`
	OwnerKind    string   `json:"owner_kind"` // "User" or "Team"
	Contributors []string `json:"contributors"`
	Status       string   `json:"status"`
}

// Dispatcher sends notifications
type Dispatcher interface {
	SendReminder(ctx context.Context, r Reminder) error
	SendActivityEvent(ctx context.Context, e ActivityEvent) error
}
