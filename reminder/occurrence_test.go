package reminder

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday
var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 6, day, hour, minute, 0, 0, time.UTC)
}

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func minutes(n int) *time.Duration {
	d := time.Duration(n) * time.Minute
	return &d
}

func starts(occ []Occurrence) []time.Time {
	out := make([]time.Time, len(occ))
	for i, o := range occ {
		out[i] = o.Start.UTC()
	}
	return out
}

func TestOccurrences_SingleEvent(t *testing.T) {
	s := Schedule{ID: "s1", Start: now.Add(2 * time.Hour), End: timePtr(now.Add(3 * time.Hour))}

	occ := Occurrences(s, now, now.Add(DefaultWindow))
	require.Len(t, occ, 1)
	assert.Equal(t, Occurrence{Start: now.Add(2 * time.Hour), End: now.Add(3 * time.Hour)}, occ[0])

	s.Start = now.Add(30 * time.Hour)
	s.End = nil
	assert.Empty(t, Occurrences(s, now, now.Add(DefaultWindow)))
}

func TestOccurrences_Recurrence(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   *time.Time
		rule  Recurrence
		from  time.Time
		to    time.Time
		want  []time.Time
	}{
		{
			name:  "daily",
			start: time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Daily, Interval: 1},
			from:  now, to: now.Add(DefaultWindow),
			want: []time.Time{at(2, 9, 0)},
		},
		{
			name:  "every other day",
			start: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Daily, Interval: 2},
			from:  now, to: now.Add(72 * time.Hour),
			want: []time.Time{at(3, 9, 0)},
		},
		{
			name:  "weekly on wednesday",
			start: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Weekly, Interval: 1, DayOfWeek: intPtr(3)},
			from:  now, to: now.Add(7 * 24 * time.Hour),
			want: []time.Time{at(3, 10, 0)},
		},
		{
			name:  "weekly on sunday",
			start: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Weekly, Interval: 1, DayOfWeek: intPtr(7)},
			from:  now, to: now.Add(7 * 24 * time.Hour),
			want: []time.Time{at(7, 10, 0)},
		},
		{
			name:  "monthly skips short months",
			start: time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Monthly, Interval: 1},
			from:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			to:    time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
			want:  []time.Time{time.Date(2026, 5, 31, 8, 0, 0, 0, time.UTC)},
		},
		{
			name:  "monthly on a set day",
			start: time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Monthly, Interval: 2, DayOfMonth: intPtr(5)},
			from:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			to:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			want: []time.Time{
				time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC),
				time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "yearly leap day",
			start: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Yearly, Interval: 1},
			from:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			to:    time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC),
			want:  []time.Time{time.Date(2028, 2, 29, 12, 0, 0, 0, time.UTC)},
		},
		{
			name:  "end date stops the series",
			start: time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
			rule:  Recurrence{Type: Daily, Interval: 1, EndDate: timePtr(at(1, 23, 0))},
			from:  now, to: now.Add(DefaultWindow),
			want: nil,
		},
		{
			name:  "schedule end stops the series",
			start: time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
			end:   timePtr(at(2, 8, 0)),
			rule:  Recurrence{Type: Daily, Interval: 1},
			from:  now, to: now.Add(DefaultWindow),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{ID: "s1", Start: tt.start, End: tt.end, Recurrences: []Recurrence{tt.rule}}
			got := starts(Occurrences(s, tt.from, tt.to))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOccurrences_Duration(t *testing.T) {
	s := Schedule{
		ID:          "s1",
		Start:       time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
		Recurrences: []Recurrence{{Type: Daily, Interval: 1, Duration: minutes(30)}},
	}
	occ := Occurrences(s, now, now.Add(DefaultWindow))
	require.Len(t, occ, 1)
	assert.Equal(t, at(2, 9, 30), occ[0].End)
}

func TestOccurrences_WallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 09:00 EST is 14:00Z; after the March 8 switch 09:00 EDT is 13:00Z
	s := Schedule{
		ID:          "s1",
		Start:       time.Date(2026, 3, 1, 9, 0, 0, 0, ny),
		Location:    ny,
		Recurrences: []Recurrence{{Type: Daily, Interval: 1}},
	}
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	got := starts(Occurrences(s, from, from.Add(24*time.Hour)))
	assert.Equal(t, []time.Time{time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC)}, got)
}

// Given: A daily schedule with one cancelled and one moved occurrence
// When: The window covers the cancelled one and the moved one's new start
// Then: The cancelled one is gone and the moved one appears at its new time
func TestOccurrences_Exceptions(t *testing.T) {
	s := Schedule{
		ID:          "s1",
		Start:       time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
		Recurrences: []Recurrence{{Type: Daily, Interval: 1, Duration: minutes(60)}},
		Exceptions: []Exception{
			{OriginalStart: at(2, 9, 0)},
			{OriginalStart: at(3, 9, 0), NewStart: timePtr(at(2, 12, 30))},
		},
	}

	occ := Occurrences(s, now, now.Add(DefaultWindow))
	require.Len(t, occ, 1)
	assert.Equal(t, Occurrence{Start: at(2, 12, 30), End: at(2, 12, 30)}, occ[0])
}

func TestOccurrences_OverlappingRulesCollapse(t *testing.T) {
	rule := Recurrence{Type: Daily, Interval: 1}
	s := Schedule{
		ID:          "s1",
		Start:       time.Date(2026, 5, 22, 9, 0, 0, 0, time.UTC),
		Recurrences: []Recurrence{rule, rule, {Type: Weekly, Interval: 1}},
	}
	got := starts(Occurrences(s, now, now.Add(7*24*time.Hour)))
	assert.Len(t, got, 7)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].After(got[i-1]))
	}
}

func TestDelays(t *testing.T) {
	occurrence := now.Add(90 * time.Minute)

	prefs := Preferences{Reminders: []ReminderPreference{{MinutesBefore: 60}}}
	assert.Equal(t, []time.Duration{30 * time.Minute}, Delays(occurrence, prefs, now))

	prefs = Preferences{Reminders: []ReminderPreference{
		{MinutesBefore: 60}, {MinutesBefore: 60}, {MinutesBefore: 120}, {MinutesBefore: 0}, {MinutesBefore: 1440},
	}}
	assert.Equal(t, []time.Duration{0, 30 * time.Minute, 90 * time.Minute}, Delays(occurrence, prefs, now))

	assert.Empty(t, Delays(occurrence, Preferences{}, now))
}

func TestDedupKey(t *testing.T) {
	start := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "schedule-reminder:s1:1780390800000:u1", DedupKey("s1", start, "u1"))

	// the same instant in another zone is the same key
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, DedupKey("s1", start, "u1"), DedupKey("s1", start.In(ny), "u1"))
}

func TestParsePreferences(t *testing.T) {
	p, err := ParsePreferences(`{"reminders":[{"minutesBefore":60},{"minutesBefore":15}]}`)
	require.NoError(t, err)
	assert.Equal(t, Preferences{Reminders: []ReminderPreference{{60}, {15}}}, p)

	p, err = ParsePreferences("")
	require.NoError(t, err)
	assert.Empty(t, p.Reminders)

	_, err = ParsePreferences(`{"reminders":`)
	assert.Error(t, err)

	_, err = ParsePreferences(`{"reminders":[{"minutesBefore":-5}]}`)
	assert.Error(t, err)
}
