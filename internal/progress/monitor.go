package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/permutor/internal/logging"
)

// State is the position of a trial in the monitor's state machine.
type State int

const (
	AwaitingStream State = iota
	Streaming
	Complete
	OverloadDetected
	StallDetected
	Cancelled
)

func (s State) String() string {
	switch s {
	case AwaitingStream:
		return "awaiting_stream"
	case Streaming:
		return "streaming"
	case Complete:
		return "complete"
	case OverloadDetected:
		return "overload_detected"
	case StallDetected:
		return "stall_detected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const (
	DefaultStatsPeriod    = 500 * time.Millisecond
	DefaultOverloadWindow = 5 * time.Second
	DefaultStallWindow    = 10 * time.Second
)

// Sample is one evaluator reading.
type Sample struct {
	At    time.Time
	Frame uint64
	FPS   int
}

// Config describes what the monitor expects from one trial.
type Config struct {
	TotalFrames    uint64
	TargetFPS      int
	DetectOverload bool

	StatsPeriod    time.Duration
	OverloadWindow time.Duration
	StallWindow    time.Duration

	// Counter is shared with the reader. A fresh one is used when nil.
	Counter *Counter

	// Tick drives the evaluator; the tick value is taken as the current
	// time. A ticker at StatsPeriod is used when nil.
	Tick <-chan time.Time

	// OnSample is called for every reading before it is evaluated.
	OnSample func(Sample)
}

func (c *Config) setDefaults() {
	if c.StatsPeriod <= 0 {
		c.StatsPeriod = DefaultStatsPeriod
	}
	if c.OverloadWindow <= 0 {
		c.OverloadWindow = DefaultOverloadWindow
	}
	if c.StallWindow <= 0 {
		c.StallWindow = DefaultStallWindow
	}
	if c.Counter == nil {
		c.Counter = NewCounter()
	}
}

// Summary is the outcome of one watched trial.
type Summary struct {
	State State
	// Samples holds every reading at or above a quarter of the target fps.
	Samples       []int
	Frames        uint64
	WasOverloaded bool
	HardError     bool
}

// Monitor watches the progress of one trial at a time.
type Monitor struct {
	source Source
	logger logging.Logger
}

// NewMonitor creates a monitor reading from source.
func NewMonitor(source Source, logger logging.Logger) *Monitor {
	return &Monitor{source: source, logger: logger}
}

// Watch blocks until the trial completes, overloads, stalls or ctx is
// cancelled. A connect timeout is reported as a hard error together with
// ErrConnectTimeout; cancellation returns ctx's error.
func (m *Monitor) Watch(ctx context.Context, cfg Config) (Summary, error) {
	cfg.setDefaults()
	counter := cfg.Counter
	defer counter.Reset()

	summary := Summary{State: AwaitingStream}

	conn, err := m.source.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			summary.State = Cancelled
			return summary, ctx.Err()
		}
		summary.State = StallDetected
		summary.HardError = true
		return summary, err
	}
	m.logger.Debug("Connected to ffmpeg progress stream")

	r := startReader(ctx, conn, counter)
	defer r.stop()

	tick := cfg.Tick
	if tick == nil {
		ticker := time.NewTicker(cfg.StatsPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	summary.State = Streaming
	summary.State = m.evaluate(ctx, &cfg, tick, &summary)

	summary.Frames = counter.Frame()
	switch summary.State {
	case Cancelled:
		return summary, ctx.Err()
	case StallDetected:
		summary.HardError = true
	}
	summary.WasOverloaded = summary.Frames < cfg.TotalFrames

	return summary, nil
}

func (m *Monitor) evaluate(ctx context.Context, cfg *Config, tick <-chan time.Time, summary *Summary) State {
	noiseFloor := cfg.TargetFPS / 4

	var (
		overloadSuspect bool
		overloadSince   time.Time
		stallSuspect    bool
		stallSince      time.Time
		lastFrame       uint64
	)

	for {
		var now time.Time
		select {
		case <-ctx.Done():
			return Cancelled
		case now = <-tick:
		}
		if ctx.Err() != nil {
			return Cancelled
		}

		frame, delta := cfg.Counter.Advance()
		fps := int(float64(delta) / cfg.StatsPeriod.Seconds())
		if cfg.OnSample != nil {
			cfg.OnSample(Sample{At: now, Frame: frame, FPS: fps})
		}

		// readings this far below target are instrumentation noise
		if fps >= noiseFloor {
			summary.Samples = append(summary.Samples, fps)
		}

		if cfg.DetectOverload && fps < cfg.TargetFPS {
			if !overloadSuspect {
				overloadSuspect = true
				overloadSince = now
			}
			if now.Sub(overloadSince) > cfg.OverloadWindow {
				m.logger.Info("Encoder could not keep up in realtime", "fps", fps, "target", cfg.TargetFPS)
				return OverloadDetected
			}
		} else {
			overloadSuspect = false
		}

		if frame >= cfg.TotalFrames {
			return Complete
		}

		if frame != lastFrame {
			lastFrame = frame
			stallSuspect = false
			continue
		}
		if !stallSuspect {
			stallSuspect = true
			stallSince = now
		}
		if now.Sub(stallSince) > cfg.StallWindow {
			m.logger.Error("ffmpeg stopped making progress", "frame", frame, "window", cfg.StallWindow)
			return StallDetected
		}
	}
}

// String renders a summary for logs.
func (s Summary) String() string {
	return fmt.Sprintf("%s frames=%d samples=%d overloaded=%t", s.State, s.Frames, len(s.Samples), s.WasOverloaded)
}
