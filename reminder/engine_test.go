package reminder

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vrooli/jobs/cache"
	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	jobstest "github.com/vrooli/jobs/internal/testing"
	"github.com/vrooli/jobs/notify"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	reminders []notify.Reminder
	err       error
}

func (d *recordingDispatcher) SendReminder(ctx context.Context, r notify.Reminder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.reminders = append(d.reminders, r)
	return nil
}

func (d *recordingDispatcher) SendActivityEvent(ctx context.Context, e notify.ActivityEvent) error {
	return nil
}

// countingCache counts writes and can fail reads
type countingCache struct {
	cache.Cache
	mu      sync.Mutex
	sets    int
	ttls    []time.Duration
	readErr error
}

func (c *countingCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.readErr != nil {
		return "", false, c.readErr
	}
	return c.Cache.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.ttls = append(c.ttls, ttl)
	c.mu.Unlock()
	return c.Cache.Set(ctx, key, value, ttl)
}

type env struct {
	t     *testing.T
	conn  *sql.DB
	cache *countingCache
	disp  *recordingDispatcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:     t,
		conn:  jobstest.CreateTestDB(t),
		cache: &countingCache{Cache: cache.NewMemoryWithClock(func() time.Time { return now })},
		disp:  &recordingDispatcher{},
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		e.exec(`INSERT INTO users (id) VALUES (?)`, u)
	}
	return e
}

func (e *env) exec(query string, args ...any) {
	e.t.Helper()
	_, err := e.conn.Exec(query, args...)
	require.NoError(e.t, err)
}

func (e *env) engine() *Engine {
	log := zaptest.NewLogger(e.t).Sugar()
	return NewEngine(NewStore(e.conn, log), Options{
		Cache:      e.cache,
		Dispatcher: e.disp,
		Logger:     log,
		Now:        func() time.Time { return now },
	})
}

// meeting inserts a one-off schedule starting 90 minutes from now
func (e *env) meeting(id string) time.Time {
	start := now.Add(90 * time.Minute)
	e.exec(`INSERT INTO schedules (id, start_time, end_time, object_type, object_id, title) VALUES (?, ?, ?, 'Meeting', 'm1', 'Standup')`,
		id, db.FormatTime(start), db.FormatTime(start.Add(time.Hour)))
	return start
}

func (e *env) subscribe(id, scheduleID, userID, prefs string) {
	e.exec(`INSERT INTO notification_subscriptions (id, schedule_id, subscriber_id, context) VALUES (?, ?, ?, ?)`,
		id, scheduleID, userID, prefs)
}

// Test Case 1: At-most-once delivery
// Given: A meeting 90 minutes out with a subscriber reminded 60 minutes before
// When: The engine runs twice within the dedup window
// Then: One reminder is sent with a 30 minute delay and one cache key is written
func TestEngine_SendsOncePerOccurrence(t *testing.T) {
	e := newEnv(t)
	start := e.meeting("s1")
	e.subscribe("n1", "s1", "u1", `{"reminders":[{"minutesBefore":60}]}`)
	// no preferences: not reminded
	e.subscribe("n2", "s1", "u2", `{"reminders":[]}`)
	// malformed: dropped at the store
	e.subscribe("n3", "s1", "u3", `{"reminders":[{"minutesBefore":"soon"}]}`)

	engine := e.engine()

	first, err := engine.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Schedules: 1, Occurrences: 1, Sent: 1}, first)

	second, err := engine.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Schedules: 1, Occurrences: 1, Duplicates: 1}, second)

	require.Len(t, e.disp.reminders, 1)
	r := e.disp.reminders[0]
	assert.Equal(t, "s1", r.ScheduleID)
	assert.Equal(t, "Meeting", r.ObjectType)
	assert.Equal(t, "Standup", r.Title)
	assert.True(t, start.Equal(r.OccurrenceStart))
	assert.Equal(t, []notify.Recipient{{UserID: "u1", Delays: []time.Duration{30 * time.Minute}}}, r.Recipients)

	assert.Equal(t, 1, e.cache.sets)
	assert.Equal(t, []time.Duration{DefaultWindow}, e.cache.ttls)
	_, ok, err := e.cache.Get(context.Background(), DedupKey("s1", start, "u1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

// Test Case 2: Subscribers added later
// Given: A reminder already sent to u1
// When: u2 subscribes and the engine runs again
// Then: Only u2 is reminded
func TestEngine_RemindsNewSubscribersOnly(t *testing.T) {
	e := newEnv(t)
	e.meeting("s1")
	e.subscribe("n1", "s1", "u1", `{"reminders":[{"minutesBefore":60}]}`)

	engine := e.engine()
	_, err := engine.Process(context.Background())
	require.NoError(t, err)

	e.subscribe("n2", "s1", "u2", `{"reminders":[{"minutesBefore":15},{"minutesBefore":120}]}`)
	_, err = engine.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, e.disp.reminders, 2)
	assert.Equal(t, []notify.Recipient{{UserID: "u2", Delays: []time.Duration{0, 75 * time.Minute}}}, e.disp.reminders[1].Recipients)
	assert.Equal(t, 2, e.cache.sets)
}

func TestEngine_FailedSendIsRetriedNextRun(t *testing.T) {
	e := newEnv(t)
	e.meeting("s1")
	e.subscribe("n1", "s1", "u1", `{"reminders":[{"minutesBefore":60}]}`)

	engine := e.engine()
	e.disp.err = errors.New("broker unavailable")
	summary, err := engine.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 0, e.cache.sets)

	e.disp.err = nil
	summary, err = engine.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, e.disp.reminders, 1)
}

func TestEngine_CacheReadErrorSkipsSubscriber(t *testing.T) {
	e := newEnv(t)
	e.meeting("s1")
	e.subscribe("n1", "s1", "u1", `{"reminders":[{"minutesBefore":60}]}`)
	e.cache.readErr = errors.New("cache down")

	summary, err := e.engine().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Empty(t, e.disp.reminders)
}

// Test Case 3: Recurring schedule with rules loaded from the store
// Given: A daily schedule with its next occurrence moved by an exception
// When: The engine runs
// Then: The reminder targets the moved occurrence
func TestEngine_RecurringScheduleFromStore(t *testing.T) {
	e := newEnv(t)
	e.exec(`INSERT INTO schedules (id, start_time, timezone) VALUES ('s1', ?, 'UTC')`,
		db.FormatTime(time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC)))
	e.exec(`INSERT INTO schedule_recurrences (id, schedule_id, recurrence_type, interval_count, duration) VALUES ('rec1', 's1', 'Daily', 1, 45)`)
	e.exec(`INSERT INTO schedule_exceptions (id, schedule_id, original_start_time, new_start_time, new_end_time) VALUES ('x1', 's1', ?, ?, ?)`,
		db.FormatTime(at(2, 9, 0)), db.FormatTime(at(2, 11, 0)), db.FormatTime(at(2, 12, 0)))
	e.subscribe("n1", "s1", "u1", `{"reminders":[{"minutesBefore":30}]}`)

	summary, err := e.engine().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	require.Len(t, e.disp.reminders, 1)
	r := e.disp.reminders[0]
	assert.True(t, at(2, 11, 0).Equal(r.OccurrenceStart))
	assert.True(t, at(2, 12, 0).Equal(r.OccurrenceEnd))
	assert.Equal(t, []time.Duration{22*time.Hour + 30*time.Minute}, r.Recipients[0].Delays)
}

func TestEngine_SkipsSchedulesOutsideWindow(t *testing.T) {
	e := newEnv(t)
	e.exec(`INSERT INTO schedules (id, start_time) VALUES ('later', ?)`, db.FormatTime(now.Add(48*time.Hour)))
	e.exec(`INSERT INTO schedules (id, start_time, end_time) VALUES ('over', ?, ?)`,
		db.FormatTime(now.Add(-48*time.Hour)), db.FormatTime(now.Add(-47*time.Hour)))
	e.exec(`INSERT INTO schedules (id, start_time, timezone) VALUES ('badtz', ?, 'Mars/Olympus')`, db.FormatTime(now.Add(time.Hour)))
	e.subscribe("n1", "later", "u1", `{"reminders":[{"minutesBefore":60}]}`)
	e.subscribe("n2", "over", "u1", `{"reminders":[{"minutesBefore":60}]}`)
	e.subscribe("n3", "badtz", "u1", `{"reminders":[{"minutesBefore":60}]}`)

	summary, err := e.engine().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, e.disp.reminders)
}

func TestEngine_ManySchedulesAcrossPages(t *testing.T) {
	e := newEnv(t)
	const total = 130
	for i := 0; i < total; i++ {
		id := "s" + string(rune('a'+i/26)) + string(rune('a'+i%26))
		e.meeting(id)
		e.subscribe("n"+id, id, "u1", `{"reminders":[{"minutesBefore":60}]}`)
	}

	summary, err := e.engine().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, total, summary.Schedules)
	assert.Equal(t, total, summary.Sent)
	assert.Len(t, e.disp.reminders, total)
	assert.Equal(t, total, e.cache.sets)
}

func TestEngine_Run(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.engine().Run(context.Background(), "0 0 * * *"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, e.engine().Run(ctx, "0 0 * * *"))
}
