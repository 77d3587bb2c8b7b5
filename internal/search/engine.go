package search

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/permutor/internal/events"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/trial"
)

// TargetQuality is the VMAF score that ends the search at its tier.
const TargetQuality = 95.0

// TrialRunner executes single trials.
type TrialRunner interface {
	Run(ctx context.Context, t trial.Trial) (trial.Result, error)
	CheckQuality(ctx context.Context, t trial.Trial, permIndex int) (float64, time.Duration, error)
}

// Outcome is what a search run produced. It is filled in even when the run
// ended with an error, so completed results can still be reported.
type Outcome struct {
	Results    []trial.Result
	Duplicates []trial.Result
	// FirstBitrate is the bitrate of the first tier, the only tier that
	// records duplicate scores.
	FirstBitrate int
	TargetFound  bool
	Runtime      time.Duration
}

// Engine runs the quality-targeted permutation search.
type Engine struct {
	runID  string
	runner TrialRunner
	bus    *events.Bus
	logger logging.Logger
	trials []trial.Trial
}

// NewEngine creates an engine. bus may be nil.
func NewEngine(runID string, runner TrialRunner, bus *events.Bus, logger logging.Logger) *Engine {
	return &Engine{runID: runID, runner: runner, bus: bus, logger: logger}
}

// Add appends a trial. Trials of one bitrate tier must be contiguous.
func (e *Engine) Add(t trial.Trial) {
	e.trials = append(e.trials, t)
}

// Len returns the number of queued trials.
func (e *Engine) Len() int {
	return len(e.trials)
}

// state is mutated only by Run.
type state struct {
	results    []trial.Result
	duplicates []trial.Result
	seen       map[string]struct{}
	tier       int
}

func (s *state) isDuplicate(settings string) bool {
	for _, d := range s.duplicates {
		if d.Settings == settings {
			return true
		}
	}
	return false
}

// add keeps res, or records it as a duplicate when it repeats a score seen
// earlier in the first tier.
func (s *state) add(res trial.Result, t trial.Trial) {
	if s.tier == 0 && !t.AllowDuplicates && t.CheckQuality && !res.WasOverloaded && res.HasQuality {
		key := res.ScoreKey()
		if _, ok := s.seen[key]; ok {
			s.duplicates = append(s.duplicates, res)
			return
		}
		s.seen[key] = struct{}{}
	}
	s.results = append(s.results, res)
}

// Run executes the queued trials in order. Overloads and skipped duplicates
// are results; a stall, launch failure or exhausted quality check ends the
// run with an error. Cancellation returns ctx's error.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	s := &state{seen: make(map[string]struct{})}
	out := Outcome{}
	if len(e.trials) > 0 {
		out.FirstBitrate = e.trials[0].Bitrate
	}

	err := e.run(ctx, s, &out)

	out.Results = s.results
	out.Duplicates = s.duplicates
	out.Runtime = time.Since(start)

	finished := events.SearchFinishedEvent{
		RunID:      e.runID,
		Results:    len(out.Results),
		Duplicates: len(out.Duplicates),
		Seconds:    out.Runtime.Seconds(),
		Cancelled:  errors.Is(err, context.Canceled),
	}
	if err != nil {
		finished.Error = err.Error()
	}
	e.bus.Publish(finished)

	return out, err
}

func (e *Engine) run(ctx context.Context, s *state, out *Outcome) error {
	total := len(e.trials)
	ignoreFactor := 1.0
	lastTrial := time.Duration(-1)

	for i, t := range e.trials {
		if err := ctx.Err(); err != nil {
			return err
		}
		trialStart := time.Now()

		eta := -1.0
		if lastTrial >= 0 {
			eta = ETA(lastTrial, i+1, total, ignoreFactor).Seconds()
		}
		e.bus.Publish(startedEvent(e.runID, i, total, t, eta))

		boundary := i == total-1 || e.trials[i+1].Bitrate != t.Bitrate

		if !t.AllowDuplicates && t.CheckQuality && s.isDuplicate(t.Settings) {
			e.logger.Info("Settings will produce a score identical to other settings, skipping",
				"bitrate", t.Bitrate, "settings", t.Settings)
			e.bus.Publish(events.TrialSkippedEvent{RunID: e.runID, Index: i + 1, Bitrate: t.Bitrate, Settings: t.Settings})
		} else {
			res, err := e.runner.Run(ctx, t)
			if err != nil {
				return err
			}

			if !res.WasOverloaded && t.CheckQuality {
				score, elapsed, err := e.runner.CheckQuality(ctx, t, i+1)
				if err != nil {
					return err
				}
				res.QualityScore = score
				res.HasQuality = true
				res.QualityTime = elapsed
				if score >= TargetQuality {
					out.TargetFound = true
				}
			}
			lastTrial = time.Since(trialStart)

			s.add(res, t)
			e.bus.Publish(completedEvent(e.runID, i, res, lastTrial))
		}

		// A skipped last trial still closes its tier.
		if !boundary {
			continue
		}

		ignoreFactor = IgnoreFactor(len(s.results), len(s.duplicates))
		e.bus.Publish(events.TierCompletedEvent{
			RunID:        e.runID,
			Bitrate:      t.Bitrate,
			Kept:         len(s.results),
			Duplicates:   len(s.duplicates),
			IgnoreFactor: ignoreFactor,
			TargetFound:  out.TargetFound,
		})
		s.tier++

		if out.TargetFound {
			e.logger.Info("Found target VMAF score, stopping permutations",
				"target", TargetQuality, "bitrate", t.Bitrate)
			return nil
		}
	}
	return nil
}

func startedEvent(runID string, i, total int, t trial.Trial, eta float64) events.TrialStartedEvent {
	return events.TrialStartedEvent{
		RunID:      runID,
		Index:      i + 1,
		Total:      total,
		Encoder:    t.Encoder,
		Resolution: t.Metadata.Resolution(),
		FPS:        t.Metadata.FPS,
		Bitrate:    t.Bitrate,
		Settings:   t.Settings,
		ETASeconds: eta,
		DecodeRun:  t.DecodeRun,
		IsDecoding: t.IsDecoding,
	}
}

func completedEvent(runID string, i int, res trial.Result, elapsed time.Duration) events.TrialCompletedEvent {
	return events.TrialCompletedEvent{
		RunID:         runID,
		Index:         i + 1,
		Encoder:       res.Encoder,
		Bitrate:       res.Bitrate,
		Settings:      res.Settings,
		WasOverloaded: res.WasOverloaded,
		AvgFPS:        res.FPS.Avg,
		OnePercentLow: res.FPS.OnePercentLow,
		Ninetieth:     res.FPS.NinetyPercentile,
		VmafScore:     res.QualityScore,
		HasScore:      res.HasQuality,
		Seconds:       elapsed.Seconds(),
	}
}
