// Package search walks an ordered list of trials, one bitrate tier after
// another, and aggregates their results.
//
// The permutation Engine skips settings predicted to repeat a known quality
// score, scales its ETA by the share of work it expects to skip and stops at
// the end of the first tier that reached TargetQuality. The Benchmark engine
// runs a fixed list without any of that.
package search
