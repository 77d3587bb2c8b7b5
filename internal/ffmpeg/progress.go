package ffmpeg

import (
	"regexp"
	"strconv"
)

var frameLine = regexp.MustCompile(`^frame=\s*(\d+)`)

// ParseFrameLine returns the frame count of a "frame=N" progress line.
// Every other key=value line is ignored.
func ParseFrameLine(line string) (uint64, bool) {
	m := frameLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
