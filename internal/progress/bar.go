package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Bar draws frame progress of a trial on an interactive terminal.
type Bar struct {
	bar *progressbar.ProgressBar
}

// IsInteractive reports whether w is a terminal.
func IsInteractive(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewBar returns a bar writing to w, or nil when w is not a terminal.
// All methods are safe on a nil bar.
func NewBar(w io.Writer, totalFrames uint64, description string) *Bar {
	if !IsInteractive(w) {
		return nil
	}
	return newBar(w, totalFrames, description)
}

func newBar(w io.Writer, totalFrames uint64, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions64(int64(totalFrames),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerHead:    ">",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)}
}

// Observe updates the bar from a monitor sample.
func (b *Bar) Observe(s Sample) {
	if b == nil {
		return
	}
	_ = b.bar.Set64(int64(s.Frame))
}

// Close finishes the bar when the trial completed and leaves it at its
// current position otherwise.
func (b *Bar) Close(summary Summary) {
	if b == nil {
		return
	}
	if summary.State == Complete {
		_ = b.bar.Finish()
	} else {
		_ = b.bar.Exit()
	}
}
