package reminder

import (
	"fmt"
	"sort"
	"time"
)

// DedupKeyPrefix namespaces reminder entries in the shared cache
const DedupKeyPrefix = "schedule-reminder"

// DedupKey identifies one reminder: a subscriber and one occurrence of a schedule
func DedupKey(scheduleID string, occurrenceStart time.Time, userID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", DedupKeyPrefix, scheduleID, occurrenceStart.UnixMilli(), userID)
}

// Delays converts minutes-before preferences into delays from now.
// A reminder whose moment has passed is due immediately; equal delays collapse.
func Delays(occurrenceStart time.Time, prefs Preferences, now time.Time) []time.Duration {
	seen := make(map[time.Duration]bool, len(prefs.Reminders))
	var delays []time.Duration
	for _, p := range prefs.Reminders {
		d := occurrenceStart.Sub(now) - time.Duration(p.MinutesBefore)*time.Minute
		if d < 0 {
			d = 0
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		delays = append(delays, d)
	}
	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	return delays
}
