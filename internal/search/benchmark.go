package search

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/permutor/internal/events"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/trial"
)

// Benchmark runs a fixed list of trials with standard settings. Every
// result is kept; there is no quality check, duplicate skip or ETA since
// each trial differs in input.
type Benchmark struct {
	runID  string
	runner TrialRunner
	bus    *events.Bus
	logger logging.Logger
	trials []trial.Trial
}

// NewBenchmark creates a benchmark engine. bus may be nil.
func NewBenchmark(runID string, runner TrialRunner, bus *events.Bus, logger logging.Logger) *Benchmark {
	return &Benchmark{runID: runID, runner: runner, bus: bus, logger: logger}
}

// Add appends a trial.
func (b *Benchmark) Add(t trial.Trial) {
	b.trials = append(b.trials, t)
}

// Len returns the number of queued trials.
func (b *Benchmark) Len() int {
	return len(b.trials)
}

// Run executes every trial in order.
func (b *Benchmark) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	out := Outcome{}
	if len(b.trials) > 0 {
		out.FirstBitrate = b.trials[0].Bitrate
	}

	var err error
	for i, t := range b.trials {
		if err = ctx.Err(); err != nil {
			break
		}
		trialStart := time.Now()
		b.bus.Publish(startedEvent(b.runID, i, len(b.trials), t, -1))

		var res trial.Result
		res, err = b.runner.Run(ctx, t)
		if err != nil {
			break
		}
		out.Results = append(out.Results, res)
		b.bus.Publish(completedEvent(b.runID, i, res, time.Since(trialStart)))
	}

	out.Runtime = time.Since(start)
	finished := events.SearchFinishedEvent{
		RunID:     b.runID,
		Results:   len(out.Results),
		Seconds:   out.Runtime.Seconds(),
		Cancelled: errors.Is(err, context.Canceled),
	}
	if err != nil {
		finished.Error = err.Error()
		b.logger.Error("Benchmark stopped", "error", err, "completed", len(out.Results))
	}
	b.bus.Publish(finished)

	return out, err
}
