package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

var _ Dispatcher = (*Log)(nil)
var _ Dispatcher = (*NATS)(nil)

func TestNATS_SendReminder(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATS(pub, "jobsd", 0)

	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	err := n.SendReminder(context.Background(), Reminder{
		ScheduleID:      "s1",
		ObjectType:      "Meeting",
		OccurrenceStart: start,
		OccurrenceEnd:   start.Add(time.Hour),
		Recipients:      []Recipient{{UserID: "u1", Delays: []time.Duration{30 * time.Minute}}},
	})
	require.NoError(t, err)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "jobsd.reminder.meeting", pub.msgs[0].subject)

	var got Reminder
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, "s1", got.ScheduleID)
	assert.True(t, got.OccurrenceStart.Equal(start))
	require.Len(t, got.Recipients, 1)
	assert.Equal(t, []time.Duration{30 * time.Minute}, got.Recipients[0].Delays)
}

func TestNATS_SendActivityEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATS(pub, "jobsd", 0)

	require.NoError(t, n.SendActivityEvent(context.Background(), ActivityEvent{ReportID: "r1", ObjectType: "ChatMessage", Status: "ClosedDeleted"}))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "jobsd.activity.chatmessage", pub.msgs[0].subject)
	assert.Equal(t, "jobsd.activity.unknown", n.Subject("activity", ""))
}

func TestNATS_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	n := NewNATS(pub, "jobsd", 0)

	err := n.SendActivityEvent(context.Background(), ActivityEvent{ObjectType: "Tag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish jobsd.activity.tag")
}

func TestNATS_RateLimitHonoursContext(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATS(pub, "jobsd", 0.001)

	// the single burst token is spent by the first publish
	require.NoError(t, n.SendActivityEvent(context.Background(), ActivityEvent{ObjectType: "Tag"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.SendActivityEvent(ctx, ActivityEvent{ObjectType: "Tag"})
	require.Error(t, err)
	assert.Len(t, pub.msgs, 1)
}

func TestLog_WritesOneLinePerRecipient(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLog(zap.New(core).Sugar())

	ctx := logger.WithTraceID(context.Background(), "trace-1")
	require.NoError(t, l.SendReminder(ctx, Reminder{
		ScheduleID: "s1",
		ObjectType: "Meeting",
		Recipients: []Recipient{{UserID: "u1"}, {UserID: "u2"}},
	}))
	require.NoError(t, l.SendActivityEvent(ctx, ActivityEvent{ReportID: "r1"}))

	assert.Equal(t, 2, logs.FilterMessage("Reminder").Len())
	events := logs.FilterMessage("Moderation activity").All()
	require.Len(t, events, 1)
	assert.Equal(t, "trace-1", events[0].ContextMap()[logger.FieldTraceID])
}
