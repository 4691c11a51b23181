// Package reminder sends at-most-once reminders for upcoming schedule occurrences.
package reminder

import (
	"encoding/json"
	"time"

	"github.com/vrooli/jobs/errors"
)

// RecurrenceType is how often a schedule repeats
type RecurrenceType string

const (
	Daily   RecurrenceType = "Daily"
	Weekly  RecurrenceType = "Weekly"
	Monthly RecurrenceType = "Monthly"
	Yearly  RecurrenceType = "Yearly"
)

// Recurrence is one repeat rule of a schedule.
// Optional fields default to the schedule's own start.
type Recurrence struct {
	Type       RecurrenceType
	Interval   int
	DayOfWeek  *int           // 1=Monday ... 7=Sunday
	DayOfMonth *int           // 1-31
	Month      *int           // 1-12, Yearly only
	EndDate    *time.Time     // no occurrence starts after it
	Duration   *time.Duration // occurrence length; zero when unset
}

// Exception moves or cancels the occurrence starting at OriginalStart
type Exception struct {
	OriginalStart time.Time
	NewStart      *time.Time // nil cancels the occurrence
	NewEnd        *time.Time
}

// Cancelled reports whether the exception removes its occurrence
func (e Exception) Cancelled() bool {
	return e.NewStart == nil
}

// ReminderPreference is one "remind me N minutes before" setting
type ReminderPreference struct {
	MinutesBefore int `json:"minutesBefore"`
}

// Preferences are a subscriber's reminder settings
type Preferences struct {
	Reminders []ReminderPreference `json:"reminders"`
}

// ParsePreferences decodes and validates a stored subscription context.
// An empty context means no reminders.
func ParsePreferences(raw string) (Preferences, error) {
	var p Preferences
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preferences{}, errors.Wrapf(errors.ErrInvalidRequest, "malformed reminder preferences: %v", err)
	}
	for _, r := range p.Reminders {
		if r.MinutesBefore < 0 {
			return Preferences{}, errors.NewInvalidRequestError("minutesBefore must be non-negative, got %d", r.MinutesBefore)
		}
	}
	return p, nil
}

// Subscription is one subscriber's interest in a schedule
type Subscription struct {
	ID           string
	SubscriberID string
	Preferences  Preferences
}

// Schedule is an event that may repeat. For a recurring schedule End bounds
// the series; otherwise it is the end of the single occurrence.
type Schedule struct {
	ID            string
	ObjectType    string
	ObjectID      string
	Title         string
	Start         time.Time
	End           *time.Time
	Location      *time.Location
	Recurrences   []Recurrence
	Exceptions    []Exception
	Subscriptions []Subscription
}

// Occurrence is one concrete instance of a schedule
type Occurrence struct {
	Start time.Time
	End   time.Time
}
