package slidingwindow

import "time"

// CountWithin counts timestamps in the half-open window (end-width, end].
// ts does not need to be sorted.
func CountWithin(ts []time.Time, end time.Time, width time.Duration) int {
	if width <= 0 {
		return 0
	}
	start := end.Add(-width)
	n := 0
	for _, t := range ts {
		if t.After(start) && !t.After(end) {
			n++
		}
	}
	return n
}
