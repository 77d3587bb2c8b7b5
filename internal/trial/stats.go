package trial

import "slices"

// Stats summarises the accepted fps samples of a trial.
type Stats struct {
	Avg              int
	OnePercentLow    int
	NinetyPercentile int
}

// ComputeStats returns the integer mean and the nearest-rank 1% low and
// 90th percentile: sorted[ceil(0.01n)] and sorted[ceil(0.90n)]. Ranks past
// the end are clamped to the last sample.
func ComputeStats(samples []int) Stats {
	n := len(samples)
	if n == 0 {
		return Stats{}
	}

	var sum int64
	for _, s := range samples {
		sum += int64(s)
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	return Stats{
		Avg:              int(sum / int64(n)),
		OnePercentLow:    sorted[rank(n, 1, 100)],
		NinetyPercentile: sorted[rank(n, 9, 10)],
	}
}

// rank returns min(ceil(n*num/den), n-1) without floating point.
func rank(n, num, den int) int {
	r := (n*num + den - 1) / den
	if r > n-1 {
		return n - 1
	}
	return r
}
