package availability

import (
	"sort"
	"time"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

const (
	// SlotStep is the spacing of candidate slot starts.
	SlotStep = 15 * time.Minute

	// BusinessDayStartHour and BusinessDayEndHour bound slots in local time.
	BusinessDayStartHour = 9
	BusinessDayEndHour   = 18
)

// Resolve returns the free slots of length duration inside [start, end) that
// no connected participant is busy for, in chronological order.
//
// Candidates start on the SlotStep grid (the first one is start rounded up to
// the grid) and must lie entirely within business hours in loc. Users without
// a calendar connection do not constrain the result.
func Resolve(users []calendar.UserAvailability, start, end time.Time, duration time.Duration, loc *time.Location) []calendar.FreeSlot {
	slots := []calendar.FreeSlot{}
	if duration <= 0 || !start.Before(end) {
		return slots
	}
	if loc == nil {
		loc = time.UTC
	}

	var all []calendar.BusyInterval
	for _, u := range users {
		if !u.HasCalendarConnected {
			continue
		}
		all = append(all, u.Busy...)
	}
	busy := calendar.MergeIntervals(all)

	candidate := alignUp(start)
	for !candidate.Add(duration).After(end) {
		slotEnd := candidate.Add(duration)
		if withinBusinessHours(candidate, slotEnd, loc) && !intersects(busy, candidate, slotEnd) {
			slots = append(slots, calendar.FreeSlot{Start: candidate, End: slotEnd})
		}
		candidate = candidate.Add(SlotStep)
	}
	return slots
}

// alignUp rounds t up to the next SlotStep boundary. Every zone in use has an
// offset that is a multiple of 15 minutes, so UTC alignment is also local.
func alignUp(t time.Time) time.Time {
	aligned := t.Truncate(SlotStep)
	if aligned.Before(t) {
		aligned = aligned.Add(SlotStep)
	}
	return aligned
}

// withinBusinessHours reports whether [start, end) lies inside a single local
// business day in loc. A slot may end exactly at the closing hour.
func withinBusinessHours(start, end time.Time, loc *time.Location) bool {
	ls := start.In(loc)
	y, m, d := ls.Date()
	open := time.Date(y, m, d, BusinessDayStartHour, 0, 0, 0, loc)
	closing := time.Date(y, m, d, BusinessDayEndHour, 0, 0, 0, loc)
	return !ls.Before(open) && !end.After(closing)
}

// intersects reports whether [start, end) overlaps any interval of busy,
// which must be sorted and non-overlapping.
func intersects(busy []calendar.BusyInterval, start, end time.Time) bool {
	// First interval ending after start is the only candidate.
	i := sort.Search(len(busy), func(i int) bool {
		return busy[i].End.After(start)
	})
	return i < len(busy) && busy[i].Start.Before(end)
}
