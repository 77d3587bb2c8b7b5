package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata describes the first video stream of an input file.
type Metadata struct {
	Width  int
	Height int
	FPS    int
	Frames uint64
}

// Resolution returns "WxH".
func (m Metadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

func (m Metadata) String() string {
	return fmt.Sprintf("fps: %d, total_frames: %d, resolution: %s", m.FPS, m.Frames, m.Resolution())
}

var probeArgs = []string{
	"-v", "error",
	"-select_streams", "v:0",
	"-show_entries", "stream=duration_ts,r_frame_rate,coded_width,coded_height",
	"-of", "csv=p=0",
}

// Probe reads stream metadata of path with ffprobe.
func Probe(ctx context.Context, path string) (Metadata, error) {
	args := append(append([]string{}, probeArgs...), path)

	out, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe failed on %s: %w", path, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return Metadata{}, fmt.Errorf("ffprobe returned no stream information for %s", path)
	}

	return ParseProbeLine(string(out))
}

// ParseProbeLine parses "width,height,num/den,frames" as printed by ffprobe.
func ParseProbeLine(line string) (Metadata, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 4 {
		return Metadata{}, fmt.Errorf("unexpected ffprobe output %q", line)
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid width %q: %w", fields[0], err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid height %q: %w", fields[1], err)
	}

	num, _, _ := strings.Cut(strings.TrimSpace(fields[2]), "/")
	fps, err := strconv.Atoi(num)
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid frame rate %q: %w", fields[2], err)
	}

	frames, err := strconv.ParseUint(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid frame count %q: %w", fields[3], err)
	}

	return Metadata{Width: width, Height: height, FPS: fps, Frames: frames}, nil
}
