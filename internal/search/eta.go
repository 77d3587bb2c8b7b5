package search

import "time"

// ETA estimates the time left before trial index (1-based) of total starts,
// assuming every remaining trial takes as long as the last one. Whole
// seconds only; the result is never negative.
func ETA(last time.Duration, index, total int, ignoreFactor float64) time.Duration {
	remaining := total - (index - 1)
	if remaining <= 0 || ignoreFactor <= 0 {
		return 0
	}
	seconds := int64(last / time.Second)
	return time.Duration(float64(seconds*int64(remaining))*ignoreFactor) * time.Second
}

// IgnoreFactor is the share of results that were kept rather than recorded
// as duplicates. It is 1 when nothing has been recorded yet.
func IgnoreFactor(kept, duplicates int) float64 {
	if kept+duplicates == 0 {
		return 1
	}
	return float64(kept) / float64(kept+duplicates)
}
