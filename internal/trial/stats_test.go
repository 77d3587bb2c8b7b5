package trial

import "testing"

func TestComputeStatsNearestRank(t *testing.T) {
	samples := make([]int, 100)
	for i := range samples {
		// descending input must be sorted first
		samples[i] = (100 - i) * 10
	}

	got := ComputeStats(samples)

	// sorted[ceil(0.01*100)] = sorted[1], sorted[ceil(0.90*100)] = sorted[90]
	if got.OnePercentLow != 20 {
		t.Errorf("OnePercentLow = %d, want 20", got.OnePercentLow)
	}
	if got.NinetyPercentile != 910 {
		t.Errorf("NinetyPercentile = %d, want 910", got.NinetyPercentile)
	}
	if got.Avg != 505 {
		t.Errorf("Avg = %d, want 505", got.Avg)
	}
}

func TestComputeStatsSmall(t *testing.T) {
	tests := []struct {
		name    string
		samples []int
		want    Stats
	}{
		{"empty", nil, Stats{}},
		{"single", []int{60}, Stats{Avg: 60, OnePercentLow: 60, NinetyPercentile: 60}},
		{"two", []int{70, 50}, Stats{Avg: 60, OnePercentLow: 70, NinetyPercentile: 70}},
		{"ten", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, Stats{Avg: 5, OnePercentLow: 2, NinetyPercentile: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStats(tt.samples); got != tt.want {
				t.Errorf("ComputeStats(%v) = %+v, want %+v", tt.samples, got, tt.want)
			}
		})
	}
}

func TestComputeStatsNoOverflow(t *testing.T) {
	big := int(^uint32(0) >> 1)
	got := ComputeStats([]int{big, big, big})
	if got.Avg != big {
		t.Errorf("Avg = %d, want %d", got.Avg, big)
	}
}

func TestComputeStatsDoesNotMutate(t *testing.T) {
	in := []int{3, 1, 2}
	ComputeStats(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input mutated: %v", in)
	}
}
