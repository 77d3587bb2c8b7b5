package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/smazurov/permutor/internal/events"
)

// Console prints trial headers and outcomes as they are published.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console printer writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Subscribe attaches the printer to bus and returns a function detaching it.
func (c *Console) Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(c.TrialStarted),
		bus.Subscribe(c.TrialSkipped),
		bus.Subscribe(c.TrialCompleted),
		bus.Subscribe(c.SearchFinished),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// TrialStarted prints the trial header. A negative ETA is unknown and
// left out.
func (c *Console) TrialStarted(e events.TrialStartedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.ETASeconds >= 0 {
		fmt.Fprintf(c.w, "[ETR: %s]\n", FormatDHMS(time.Duration(e.ETASeconds*float64(time.Second))))
	}
	fmt.Fprintf(c.w, "[Permutation:\t%d/%d]\n", e.Index, e.Total)
	if e.IsDecoding {
		if e.DecodeRun {
			fmt.Fprintln(c.w, "[Decode Benchmark]")
		} else {
			fmt.Fprintln(c.w, "[Encode Benchmark]")
		}
	}
	fmt.Fprintf(c.w, "[Resolution:\t%s]\n", e.Resolution)
	fmt.Fprintf(c.w, "[Encoder:\t%s]\n", e.Encoder)
	fmt.Fprintf(c.w, "[FPS:\t\t%d]\n", e.FPS)
	fmt.Fprintf(c.w, "[Bitrate:\t%dMb/s]\n", e.Bitrate)
	fmt.Fprintf(c.w, "[%s]\n", e.Settings)
}

func (c *Console) TrialSkipped(events.TrialSkippedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, "\n!!! Above encoder settings will produce identical vmaf score as other permutations, skipping...")
	fmt.Fprintln(c.w)
}

func (c *Console) TrialCompleted(e events.TrialCompletedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.WasOverloaded {
		fmt.Fprintln(c.w, "Encoder could not keep up in realtime")
	}
	fmt.Fprintf(c.w, "Average FPS:\t%d\n1%%'ile:\t\t%d\n90%%'ile:\t%d\n", e.AvgFPS, e.OnePercentLow, e.Ninetieth)
	if e.HasScore {
		fmt.Fprintf(c.w, "VMAF score:\t%g\n", e.VmafScore)
	}
	fmt.Fprintln(c.w)
}

func (c *Console) SearchFinished(e events.SearchFinishedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "Benchmark runtime: %s\n", FormatDHMS(time.Duration(e.Seconds*float64(time.Second))))
}
