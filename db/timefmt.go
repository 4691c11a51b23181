package db

import (
	"database/sql"
	"time"

	"github.com/vrooli/jobs/errors"
)

// TimeLayout is the fixed-width UTC layout every timestamp column uses.
// Fixed width keeps lexical order equal to chronological order in WHERE clauses.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t for storage
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullTime renders an optional timestamp, nil for NULL
func NullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// ParseTime reads a stored timestamp
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid timestamp %q", s)
	}
	return t, nil
}

// ParseNullTime reads an optional stored timestamp
func ParseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
