package reminder

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/pulse/batch"
)

// Fetched is one schedule row. Err is set when the row cannot be used; such a
// schedule is skipped without failing the page.
type Fetched struct {
	Schedule
	Err error
}

// Store reads schedules with their rules and subscribers
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a schedule store
func NewStore(conn *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.ComponentLogger("reminder.store")
	}
	return &Store{db: conn, logger: log}
}

// ActiveSchedules is the scan over schedules that may have an occurrence
// starting in [from, to]
func ActiveSchedules(from, to time.Time) batch.Query {
	return batch.Query{
		Table:  "schedules",
		Select: "id, start_time, end_time, timezone, object_type, COALESCE(object_id, ''), title",
		Where:  "start_time <= ? AND (end_time IS NULL OR end_time >= ?)",
		Args:   []any{db.FormatTime(to), db.FormatTime(from)},
	}
}

// Source pages through schedule rows
func (s *Store) Source() batch.Source[Fetched] {
	return batch.NewSQLSource(s.db, scanSchedule)
}

func scanSchedule(row batch.Row) (Fetched, error) {
	var (
		f         Fetched
		start, tz string
		end       sql.NullString
	)
	if err := row.Scan(&f.ID, &start, &end, &tz, &f.ObjectType, &f.ObjectID, &f.Title); err != nil {
		return Fetched{}, err
	}

	var err error
	if f.Start, err = db.ParseTime(start); err != nil {
		f.Err = err
		return f, nil
	}
	if f.End, err = db.ParseNullTime(end); err != nil {
		f.Err = err
		return f, nil
	}
	if f.Location, err = time.LoadLocation(tz); err != nil {
		f.Err = errors.Wrapf(errors.ErrInvalidRequest, "schedule %s: unknown timezone %q", f.ID, tz)
		return f, nil
	}
	return f, nil
}

// Details is everything attached to a page of schedules, keyed by schedule ID
type Details struct {
	Recurrences   map[string][]Recurrence
	Exceptions    map[string][]Exception
	Subscriptions map[string][]Subscription
}

// Details loads recurrences, exceptions and subscriptions for scheduleIDs.
// Malformed rows are logged and dropped.
func (s *Store) Details(ctx context.Context, scheduleIDs []string) (Details, error) {
	d := Details{
		Recurrences:   make(map[string][]Recurrence),
		Exceptions:    make(map[string][]Exception),
		Subscriptions: make(map[string][]Subscription),
	}
	if len(scheduleIDs) == 0 {
		return d, nil
	}

	in, args := inClause(scheduleIDs)

	if err := s.recurrences(ctx, in, args, d.Recurrences); err != nil {
		return Details{}, err
	}
	if err := s.exceptions(ctx, in, args, d.Exceptions); err != nil {
		return Details{}, err
	}
	if err := s.subscriptions(ctx, in, args, d.Subscriptions); err != nil {
		return Details{}, err
	}
	return d, nil
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}

func (s *Store) recurrences(ctx context.Context, in string, args []any, out map[string][]Recurrence) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schedule_id, recurrence_type, interval_count, day_of_week, day_of_month, month, end_date, duration
		FROM schedule_recurrences
		WHERE schedule_id IN `+in+`
		ORDER BY schedule_id, id`, args...)
	if err != nil {
		return errors.Wrap(err, "failed to query schedule recurrences")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, scheduleID, kind      string
			interval                  int
			dayOfWeek, dayOfMonth, mo sql.NullInt64
			endDate                   sql.NullString
			duration                  sql.NullInt64
		)
		if err := rows.Scan(&id, &scheduleID, &kind, &interval, &dayOfWeek, &dayOfMonth, &mo, &endDate, &duration); err != nil {
			return errors.Wrap(err, "failed to scan schedule recurrence")
		}

		r := Recurrence{
			Type:       RecurrenceType(kind),
			Interval:   interval,
			DayOfWeek:  nullInt(dayOfWeek),
			DayOfMonth: nullInt(dayOfMonth),
			Month:      nullInt(mo),
		}
		if duration.Valid {
			d := time.Duration(duration.Int64) * time.Minute
			r.Duration = &d
		}
		if r.EndDate, err = db.ParseNullTime(endDate); err != nil {
			s.logger.Warnw("Dropping recurrence with malformed end date",
				logger.FieldScheduleID, scheduleID, "recurrence_id", id, logger.FieldError, err)
			continue
		}
		out[scheduleID] = append(out[scheduleID], r)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to iterate schedule recurrences")
	}
	return nil
}

func (s *Store) exceptions(ctx context.Context, in string, args []any, out map[string][]Exception) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schedule_id, original_start_time, new_start_time, new_end_time
		FROM schedule_exceptions
		WHERE schedule_id IN `+in+`
		ORDER BY schedule_id, id`, args...)
	if err != nil {
		return errors.Wrap(err, "failed to query schedule exceptions")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, scheduleID, original string
			newStart, newEnd         sql.NullString
		)
		if err := rows.Scan(&id, &scheduleID, &original, &newStart, &newEnd); err != nil {
			return errors.Wrap(err, "failed to scan schedule exception")
		}

		e, err := parseException(original, newStart, newEnd)
		if err != nil {
			s.logger.Warnw("Dropping malformed schedule exception",
				logger.FieldScheduleID, scheduleID, "exception_id", id, logger.FieldError, err)
			continue
		}
		out[scheduleID] = append(out[scheduleID], e)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to iterate schedule exceptions")
	}
	return nil
}

func parseException(original string, newStart, newEnd sql.NullString) (Exception, error) {
	var (
		e   Exception
		err error
	)
	if e.OriginalStart, err = db.ParseTime(original); err != nil {
		return Exception{}, err
	}
	if e.NewStart, err = db.ParseNullTime(newStart); err != nil {
		return Exception{}, err
	}
	if e.NewEnd, err = db.ParseNullTime(newEnd); err != nil {
		return Exception{}, err
	}
	return e, nil
}

func (s *Store) subscriptions(ctx context.Context, in string, args []any, out map[string][]Subscription) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schedule_id, subscriber_id, COALESCE(context, '')
		FROM notification_subscriptions
		WHERE schedule_id IN `+in+`
		ORDER BY schedule_id, subscriber_id, id`, args...)
	if err != nil {
		return errors.Wrap(err, "failed to query notification subscriptions")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sub        Subscription
			scheduleID string
			raw        string
		)
		if err := rows.Scan(&sub.ID, &scheduleID, &sub.SubscriberID, &raw); err != nil {
			return errors.Wrap(err, "failed to scan notification subscription")
		}

		if sub.Preferences, err = ParsePreferences(raw); err != nil {
			s.logger.Warnw("Dropping subscription with invalid reminder preferences",
				logger.FieldScheduleID, scheduleID,
				logger.FieldUserID, sub.SubscriberID,
				logger.FieldError, err)
			continue
		}
		out[scheduleID] = append(out[scheduleID], sub)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to iterate notification subscriptions")
	}
	return nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
