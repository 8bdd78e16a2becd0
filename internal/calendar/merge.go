package calendar

import "slices"

// MergeIntervals returns the minimal sorted, non-overlapping set covering in.
// Intervals that touch (a.End == b.Start) are coalesced, so no zero-length gap
// survives. Empty or inverted intervals are dropped. A merged interval keeps
// the ConnectionID of its earliest member. The input slice is not modified.
func MergeIntervals(in []BusyInterval) []BusyInterval {
	sorted := make([]BusyInterval, 0, len(in))
	for _, iv := range in {
		if iv.End.After(iv.Start) {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return []BusyInterval{}
	}

	slices.SortStableFunc(sorted, func(a, b BusyInterval) int {
		return a.Start.Compare(b.Start)
	})

	merged := make([]BusyInterval, 0, len(sorted))
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if !cur.End.Before(iv.Start) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = iv
	}
	return append(merged, cur)
}
