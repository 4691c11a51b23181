package reminder

import (
	"sort"
	"time"
)

// maxSteps bounds the expansion of a single recurrence
const maxSteps = 10000

// Occurrences expands s into the occurrences starting within [from, to].
// Recurrences are evaluated on the wall clock of the schedule's location.
// Exceptions cancel or move the occurrence whose original start they name; a
// moved occurrence is kept when its new start is in the window, wherever the
// original fell.
func Occurrences(s Schedule, from, to time.Time) []Occurrence {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	var generated []Occurrence
	if len(s.Recurrences) == 0 {
		end := s.Start
		if s.End != nil {
			end = *s.End
		}
		generated = append(generated, Occurrence{Start: s.Start, End: end})
	}
	for _, r := range s.Recurrences {
		generated = append(generated, expand(s, r, loc, from, to)...)
	}

	excepted := make(map[int64]Exception, len(s.Exceptions))
	for _, e := range s.Exceptions {
		excepted[e.OriginalStart.UnixMilli()] = e
	}

	var out []Occurrence
	for _, o := range generated {
		if _, ok := excepted[o.Start.UnixMilli()]; ok {
			continue
		}
		if inWindow(o.Start, from, to) {
			out = append(out, o)
		}
	}

	for _, e := range s.Exceptions {
		if e.Cancelled() || !inWindow(*e.NewStart, from, to) {
			continue
		}
		end := *e.NewStart
		if e.NewEnd != nil {
			end = *e.NewEnd
		}
		out = append(out, Occurrence{Start: *e.NewStart, End: end})
	}

	return dedupe(out)
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func dedupe(occ []Occurrence) []Occurrence {
	sort.Slice(occ, func(i, j int) bool {
		if occ[i].Start.Equal(occ[j].Start) {
			return occ[i].End.Before(occ[j].End)
		}
		return occ[i].Start.Before(occ[j].Start)
	})
	out := occ[:0]
	for i, o := range occ {
		if i > 0 && o.Start.Equal(out[len(out)-1].Start) && o.End.Equal(out[len(out)-1].End) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// expand generates the occurrences of one recurrence that start no later than to
func expand(s Schedule, r Recurrence, loc *time.Location, from, to time.Time) []Occurrence {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	var duration time.Duration
	if r.Duration != nil {
		duration = *r.Duration
	}

	start := s.Start.In(loc)
	nth := stepper(r, start, interval)
	if nth == nil {
		return nil
	}

	var out []Occurrence
	for k, steps := firstStep(r.Type, start, from.In(loc), interval), 0; steps < maxSteps; k, steps = k+1, steps+1 {
		t, ok := nth(k)
		if !ok {
			continue
		}
		if t.Before(start) {
			continue
		}
		if t.After(to) {
			break
		}
		if r.EndDate != nil && t.After(*r.EndDate) {
			break
		}
		if s.End != nil && t.After(*s.End) {
			break
		}
		out = append(out, Occurrence{Start: t, End: t.Add(duration)})
	}
	return out
}

// stepper returns the k-th candidate start of r, or false when the candidate
// does not exist (the 31st of a 30 day month)
func stepper(r Recurrence, start time.Time, interval int) func(k int) (time.Time, bool) {
	y, m, d := start.Date()
	hh, mm, ss := start.Clock()
	ns := start.Nanosecond()
	loc := start.Location()

	at := func(year int, month time.Month, day int) (time.Time, bool) {
		t := time.Date(year, month, day, hh, mm, ss, ns, loc)
		return t, t.Day() == day && t.Month() == normalizeMonth(month)
	}

	switch r.Type {
	case Daily:
		return func(k int) (time.Time, bool) {
			return time.Date(y, m, d+k*interval, hh, mm, ss, ns, loc), true
		}

	case Weekly:
		offset := 0
		if r.DayOfWeek != nil {
			target := time.Weekday(*r.DayOfWeek % 7)
			offset = (int(target) - int(start.Weekday()) + 7) % 7
		}
		return func(k int) (time.Time, bool) {
			return time.Date(y, m, d+offset+7*k*interval, hh, mm, ss, ns, loc), true
		}

	case Monthly:
		day := d
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		return func(k int) (time.Time, bool) {
			return at(y, m+time.Month(k*interval), day)
		}

	case Yearly:
		month, day := m, d
		if r.Month != nil {
			month = time.Month(*r.Month)
		}
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		return func(k int) (time.Time, bool) {
			return at(y+k*interval, month, day)
		}

	default:
		return nil
	}
}

// normalizeMonth folds a month offset past December back into 1-12
func normalizeMonth(m time.Month) time.Month {
	n := (int(m) - 1) % 12
	if n < 0 {
		n += 12
	}
	return time.Month(n + 1)
}

// firstStep skips whole intervals that end before from. It stays one
// interval early so wall clock shifts cannot skip a candidate.
func firstStep(t RecurrenceType, start, from time.Time, interval int) int {
	if !from.After(start) {
		return 0
	}

	var units int
	switch t {
	case Daily:
		units = int(from.Sub(start) / (24 * time.Hour))
	case Weekly:
		units = int(from.Sub(start) / (7 * 24 * time.Hour))
	case Monthly:
		units = (from.Year()-start.Year())*12 + int(from.Month()) - int(start.Month())
	case Yearly:
		units = from.Year() - start.Year()
	}

	k := units/interval - 1
	if k < 0 {
		return 0
	}
	return k
}
