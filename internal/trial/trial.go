// Package trial runs single encoder trials: one ffmpeg throughput encode
// supervised by the progress monitor and, on request, a paired encode and
// libvmaf scoring run.
package trial

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/permutor/internal/ffmpeg"
)

var (
	// ErrLaunchFailure means ffmpeg could not be started at all.
	ErrLaunchFailure = errors.New("failed to launch ffmpeg")

	// ErrStallDetected means ffmpeg stopped making progress or never
	// reported any. The environment is likely broken.
	ErrStallDetected = errors.New("ffmpeg stopped making progress")

	// ErrQualityMeasurement means no VMAF score could be read after every
	// attempt was used up.
	ErrQualityMeasurement = errors.New("failed to measure encode quality")
)

// Trial is one encode of Input with fixed settings and bitrate.
type Trial struct {
	Input    string
	Encoder  string
	Settings string
	Bitrate  int // Mb/s
	Metadata ffmpeg.Metadata

	CheckQuality    bool
	DetectOverload  bool
	AllowDuplicates bool

	// IsDecoding marks a trial of an encode/decode pair. The encode half
	// keeps its output and the DecodeRun half decodes it.
	IsDecoding bool
	DecodeRun  bool
}

// Validate checks the trial before any process is started.
func (t Trial) Validate() error {
	if t.Input == "" {
		return errors.New("trial has no input")
	}
	if t.Encoder == "" {
		return errors.New("trial has no encoder")
	}
	if t.CheckQuality && strings.TrimSpace(t.Settings) == "" {
		return fmt.Errorf("quality check requested for %s without encoder settings", t.Encoder)
	}
	if t.Metadata.Frames == 0 || t.Metadata.FPS == 0 {
		return fmt.Errorf("trial for %s has no input metadata", t.Input)
	}
	return nil
}

// DecodeFile returns where the encode half of a decode pair keeps its output.
func DecodeFile(dir string, t Trial) string {
	base := strings.TrimSuffix(filepath.Base(t.Input), filepath.Ext(t.Input))
	return filepath.Join(dir, fmt.Sprintf("%s-%s-decode.mkv", base, t.Encoder))
}

// Result is the outcome of one trial. It is not modified once stored.
type Result struct {
	Metadata ffmpeg.Metadata
	Bitrate  int
	Encoder  string
	Settings string

	WasOverloaded bool
	EncodeTime    time.Duration

	QualityScore float64
	HasQuality   bool
	QualityTime  time.Duration

	FPS       Stats
	DecodeRun bool
}

// ScoreKey is the textual form used to compare quality scores.
func (r Result) ScoreKey() string {
	return fmt.Sprintf("%g", r.QualityScore)
}
