package permute

import "fmt"

// Resolutions are the frame sizes that carry a recommended bitrate.
var Resolutions = [4]string{"1280x720", "1920x1080", "2560x1440", "3840x2160"}

// DefaultBitrateStep is the gap in Mb/s between two bitrate tiers.
const DefaultBitrateStep = 5

// ResolutionToBitrateMap maps each of Resolutions to the matching entry of
// base (Mb/s at 60fps). A 120fps source needs roughly twice the bitrate for
// the same quality, so every value is doubled when fps is 120.
func ResolutionToBitrateMap(base [4]int, fps int) map[string]int {
	m := make(map[string]int, len(Resolutions))
	for i, res := range Resolutions {
		b := base[i]
		if fps == 120 {
			b *= 2
		}
		m[res] = b
	}
	return m
}

// BitrateFor returns the recommended bitrate for a width x height source.
func BitrateFor(base [4]int, width, height, fps int) (int, error) {
	res := fmt.Sprintf("%dx%d", width, height)
	if b, ok := ResolutionToBitrateMap(base, fps)[res]; ok {
		return b, nil
	}
	return 0, fmt.Errorf("no recommended bitrate for resolution %s", res)
}

// BitrateTiers returns the ascending bitrates from start up to maxBitrate in
// steps of step. maxBitrate is included when it lands on a step; a value below start
// yields only start.
func BitrateTiers(start, maxBitrate, step int) []int {
	if step <= 0 {
		step = DefaultBitrateStep
	}
	if maxBitrate < start {
		return []int{start}
	}

	tiers := make([]int, 0, (maxBitrate-start)/step+1)
	for i := 0; i <= (maxBitrate-start)/step; i++ {
		tiers = append(tiers, start+step*i)
	}
	return tiers
}
