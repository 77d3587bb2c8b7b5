package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStatsPeriod is how often ffmpeg reports progress, in seconds. Lower
// values update more often but inflate instantaneous fps readings.
const DefaultStatsPeriod = 0.5

// Output is the muxer and target ffmpeg writes to.
type Output struct {
	Format string
	Target string
}

// NullOutput discards the encoded stream.
var NullOutput = Output{Format: "null", Target: "-"}

// Args is the argument set for one ffmpeg launch.
type Args struct {
	// ProgressAddr is the host:port ffmpeg sends -progress lines to.
	// Empty disables progress reporting.
	ProgressAddr string
	StatsPeriod  float64

	// Report asks ffmpeg to write an ffmpeg-*.log report file.
	Report bool

	// FPSLimit is applied with -r ahead of every input. 0 means unset.
	FPSLimit int

	FirstInput  string
	SecondInput string
	HWDecode    bool

	// Bitrate in Mb/s, only used when Encoder is set.
	Bitrate  int
	Encoder  string
	Settings string

	// VmafThreads switches the launch to the scoring side when positive.
	VmafThreads int

	Output Output
}

// NewEncode builds the arguments for a throughput trial.
func NewEncode(input, encoder, settings string, bitrate int, progressAddr string) *Args {
	return &Args{
		ProgressAddr: progressAddr,
		StatsPeriod:  DefaultStatsPeriod,
		FirstInput:   input,
		Bitrate:      bitrate,
		Encoder:      encoder,
		Settings:     settings,
		Output:       NullOutput,
	}
}

// Vmaf maps encode arguments to the scoring side: it listens for the
// encoded stream on listenAddr and compares it against the original input.
// fps is required for high frame rate inputs to score correctly.
func (a *Args) Vmaf(listenAddr string, fps, threads int) *Args {
	return &Args{
		Report:      true,
		FPSLimit:    fps,
		FirstInput:  "tcp://" + listenAddr + "?listen",
		SecondInput: a.FirstInput,
		VmafThreads: threads,
		Output:      NullOutput,
	}
}

// StreamTo returns a copy that sends the encoded stream to a scorer
// listening on addr, using the raw container suited to format.
func (a *Args) StreamTo(addr, format string) *Args {
	c := *a
	c.Output = Output{Format: format, Target: "tcp://" + addr}
	return &c
}

// NoNetwork returns a copy without progress reporting or network output,
// suitable for rerunning a failed trial with visible output.
func (a *Args) NoNetwork() *Args {
	c := *a
	c.ProgressAddr = ""
	c.Output = NullOutput
	if strings.HasPrefix(c.FirstInput, "tcp://") {
		c.FirstInput = c.SecondInput
		c.SecondInput = ""
	}
	return &c
}

// DecodeOutput returns a copy that keeps the encoded stream in path so a
// follow-up decode run can read it.
func (a *Args) DecodeOutput(path string) *Args {
	c := *a
	c.Output = Output{Format: "matroska", Target: path}
	return &c
}

// DecodeInput returns a copy that hardware-decodes path and discards the
// frames, measuring decode throughput.
func (a *Args) DecodeInput(path string) *Args {
	c := *a
	c.FirstInput = path
	c.SecondInput = ""
	c.HWDecode = true
	c.Encoder = ""
	c.Settings = ""
	c.Output = NullOutput
	return &c
}

// Slice renders the arguments in launch order.
func (a *Args) Slice() []string {
	var args []string

	if a.ProgressAddr != "" {
		period := a.StatsPeriod
		if period <= 0 {
			period = DefaultStatsPeriod
		}
		args = append(args,
			"-progress", "tcp://"+a.ProgressAddr,
			"-stats_period", strconv.FormatFloat(period, 'f', -1, 64))
	}

	if a.Report {
		args = append(args, "-report")
	}

	args = a.appendInput(args, a.FirstInput)
	if a.SecondInput != "" {
		args = a.appendInput(args, a.SecondInput)
	}

	switch {
	case a.VmafThreads > 0:
		args = append(args, "-filter_complex",
			fmt.Sprintf("libvmaf='n_threads=%d:n_subsample=5'", a.VmafThreads))
	case a.Encoder != "":
		args = append(args, "-b:v", fmt.Sprintf("%dM", a.Bitrate), "-c:v", a.Encoder)
		args = append(args, SplitSettings(a.Settings)...)
	}

	out := a.Output
	if out.Format == "" {
		out = NullOutput
	}
	if out.Target != "-" && !strings.HasPrefix(out.Target, "tcp://") {
		args = append(args, "-y")
	}
	return append(args, "-f", out.Format, out.Target)
}

func (a *Args) appendInput(args []string, input string) []string {
	if a.FPSLimit != 0 {
		args = append(args, "-r", strconv.Itoa(a.FPSLimit))
	}
	if a.HWDecode && input == a.FirstInput {
		args = append(args, "-hwaccel", "auto")
	}
	return append(args, "-i", input)
}

// String renders the arguments space separated, as they would be typed.
func (a *Args) String() string {
	return strings.Join(a.Slice(), " ")
}

// SplitSettings splits a free-form settings string into arguments,
// honoring single and double quotes.
func SplitSettings(settings string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(settings))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}
