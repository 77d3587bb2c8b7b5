package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/smazurov/permutor/internal/events"
	"github.com/smazurov/permutor/internal/ffmpeg"
	"github.com/smazurov/permutor/internal/trial"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	bitrate  int
	settings string
}

// fakeRunner scores trials by settings and optionally by bitrate.
type fakeRunner struct {
	scores     map[string]float64
	tierScores map[call]float64
	overloaded map[string]bool
	failAt     int // 1-based Run call that fails, 0 for never
	failErr    error

	runs    []call
	quality []call
}

func (f *fakeRunner) Run(_ context.Context, t trial.Trial) (trial.Result, error) {
	f.runs = append(f.runs, call{t.Bitrate, t.Settings})
	if f.failAt == len(f.runs) {
		return trial.Result{}, f.failErr
	}
	return trial.Result{
		Metadata:      t.Metadata,
		Bitrate:       t.Bitrate,
		Encoder:       t.Encoder,
		Settings:      t.Settings,
		WasOverloaded: f.overloaded[t.Settings],
		FPS:           trial.Stats{Avg: 120, OnePercentLow: 100, NinetyPercentile: 130},
	}, nil
}

func (f *fakeRunner) CheckQuality(_ context.Context, t trial.Trial, _ int) (float64, time.Duration, error) {
	c := call{t.Bitrate, t.Settings}
	f.quality = append(f.quality, c)
	if s, ok := f.tierScores[c]; ok {
		return s, time.Millisecond, nil
	}
	return f.scores[t.Settings], time.Millisecond, nil
}

func tiers(bitrates []int, settings []string, mutate func(*trial.Trial)) []trial.Trial {
	var out []trial.Trial
	for _, b := range bitrates {
		for _, s := range settings {
			t := trial.Trial{
				Input:    "1080-60.y4m",
				Encoder:  "h264_nvenc",
				Settings: s,
				Bitrate:  b,
				Metadata: ffmpeg.Metadata{Width: 1920, Height: 1080, FPS: 60, Frames: 600},
			}
			if mutate != nil {
				mutate(&t)
			}
			out = append(out, t)
		}
	}
	return out
}

func newEngine(runner TrialRunner, bus *events.Bus, trials []trial.Trial) *Engine {
	e := NewEngine("run-1", runner, bus, testLogger())
	for _, t := range trials {
		e.Add(t)
	}
	return e
}

func quality(t *trial.Trial) { t.CheckQuality = true }

func settingsOf(results []trial.Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Settings)
	}
	return out
}

func TestEngineDuplicateSkip(t *testing.T) {
	runner := &fakeRunner{scores: map[string]float64{"a": 90, "b": 90, "c": 91}}
	e := newEngine(runner, nil, tiers([]int{10, 15}, []string{"a", "b", "c"}, quality))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := settingsOf(out.Duplicates); !slices.Equal(got, []string{"b"}) {
		t.Errorf("duplicates = %v, want [b]", got)
	}
	if got := settingsOf(out.Results); !slices.Equal(got, []string{"a", "c", "a", "c"}) {
		t.Errorf("results = %v, want [a c a c]", got)
	}

	want := []call{{10, "a"}, {10, "b"}, {10, "c"}, {15, "a"}, {15, "c"}}
	if !slices.Equal(runner.runs, want) {
		t.Errorf("runs = %v, want %v", runner.runs, want)
	}
	if out.FirstBitrate != 10 {
		t.Errorf("FirstBitrate = %d, want 10", out.FirstBitrate)
	}
}

func TestEngineLaterTiersDoNotRecordDuplicates(t *testing.T) {
	runner := &fakeRunner{
		scores:     map[string]float64{"a": 80, "b": 81},
		tierScores: map[call]float64{{15, "a"}: 85, {15, "b"}: 85},
	}
	e := newEngine(runner, nil, tiers([]int{10, 15}, []string{"a", "b"}, quality))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Duplicates) != 0 {
		t.Errorf("duplicates = %v, want none", settingsOf(out.Duplicates))
	}
	if len(out.Results) != 4 {
		t.Errorf("results = %d, want 4", len(out.Results))
	}
}

func TestEngineAllowDuplicates(t *testing.T) {
	runner := &fakeRunner{scores: map[string]float64{"a": 90, "b": 90}}
	e := newEngine(runner, nil, tiers([]int{10, 15}, []string{"a", "b"}, func(t *trial.Trial) {
		t.CheckQuality = true
		t.AllowDuplicates = true
	}))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Duplicates) != 0 || len(out.Results) != 4 || len(runner.runs) != 4 {
		t.Errorf("results=%d duplicates=%d runs=%d, want 4/0/4",
			len(out.Results), len(out.Duplicates), len(runner.runs))
	}
}

func TestEngineWithoutQualityKeepsEverything(t *testing.T) {
	runner := &fakeRunner{}
	e := newEngine(runner, nil, tiers([]int{10, 15}, []string{"a", "b"}, nil))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Results) != 4 || len(runner.quality) != 0 {
		t.Errorf("results=%d quality checks=%d, want 4/0", len(out.Results), len(runner.quality))
	}
	for _, r := range out.Results {
		if r.HasQuality {
			t.Errorf("result %s has a quality score", r.Settings)
		}
	}
}

func TestEngineOverloadedSkipsQuality(t *testing.T) {
	runner := &fakeRunner{
		scores:     map[string]float64{"a": 90, "b": 90},
		overloaded: map[string]bool{"a": true},
	}
	e := newEngine(runner, nil, tiers([]int{10}, []string{"a", "b"}, quality))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !slices.Equal(runner.quality, []call{{10, "b"}}) {
		t.Errorf("quality checks = %v, want only b", runner.quality)
	}
	if len(out.Duplicates) != 0 || len(out.Results) != 2 {
		t.Errorf("results=%d duplicates=%d, want 2/0", len(out.Results), len(out.Duplicates))
	}
}

func TestEngineStopsAtTierBoundaryOnTarget(t *testing.T) {
	settings := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	runner := &fakeRunner{
		scores:     map[string]float64{"s1": 90, "s2": 91, "s3": 92, "s4": 93, "s5": 94, "s6": 89, "s7": 88},
		tierScores: map[call]float64{{20, "s5"}: 95},
	}
	e := newEngine(runner, nil, tiers([]int{15, 20, 25}, settings, func(t *trial.Trial) {
		t.CheckQuality = true
		t.AllowDuplicates = true
	}))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !out.TargetFound {
		t.Error("TargetFound = false")
	}
	if len(runner.runs) != 14 {
		t.Errorf("runs = %d, want 14 (tiers 15 and 20 only)", len(runner.runs))
	}
	if last := runner.runs[len(runner.runs)-1]; last != (call{20, "s7"}) {
		t.Errorf("last run = %v, want {20 s7}", last)
	}
}

func TestEngineSkippedLastTrialClosesTier(t *testing.T) {
	bus := events.New()
	tierDone := make(chan events.TierCompletedEvent, 4)
	unsub := bus.Subscribe(func(e events.TierCompletedEvent) { tierDone <- e })
	defer unsub()

	// c repeats a's score in the first tier, so it is skipped as the last
	// trial of every later tier.
	runner := &fakeRunner{
		scores:     map[string]float64{"a": 90, "b": 91, "c": 90},
		tierScores: map[call]float64{{15, "a"}: 96},
	}
	e := newEngine(runner, bus, tiers([]int{10, 15, 20}, []string{"a", "b", "c"}, quality))

	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !out.TargetFound {
		t.Error("TargetFound = false")
	}

	want := []call{{10, "a"}, {10, "b"}, {10, "c"}, {15, "a"}, {15, "b"}}
	if !slices.Equal(runner.runs, want) {
		t.Errorf("runs = %v, want %v", runner.runs, want)
	}

	var got []events.TierCompletedEvent
	for len(got) < 2 {
		select {
		case ev := <-tierDone:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("got %d tier events, want 2", len(got))
		}
	}
	idx := slices.IndexFunc(got, func(ev events.TierCompletedEvent) bool { return ev.Bitrate == 15 })
	if idx < 0 {
		t.Fatalf("no tier event for bitrate 15 in %+v", got)
	}
	if ev := got[idx]; !ev.TargetFound || ev.Kept != 4 || ev.Duplicates != 1 {
		t.Errorf("tier 15 event = %+v, want target found, kept 4, duplicates 1", ev)
	}
}

func TestEngineErrorKeepsCompletedResults(t *testing.T) {
	runner := &fakeRunner{failAt: 3, failErr: trial.ErrStallDetected}
	e := newEngine(runner, nil, tiers([]int{10}, []string{"a", "b", "c", "d"}, nil))

	out, err := e.Run(context.Background())
	if !errors.Is(err, trial.ErrStallDetected) {
		t.Fatalf("Run() error = %v, want ErrStallDetected", err)
	}
	if len(out.Results) != 2 {
		t.Errorf("results = %d, want 2", len(out.Results))
	}
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	e := newEngine(runner, nil, tiers([]int{10}, []string{"a"}, nil))

	if _, err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(runner.runs) != 0 {
		t.Error("trial ran after cancellation")
	}
}

func TestEnginePublishesEvents(t *testing.T) {
	bus := events.New()
	tierDone := make(chan events.TierCompletedEvent, 4)
	unsubTier := bus.Subscribe(func(e events.TierCompletedEvent) { tierDone <- e })
	defer unsubTier()
	finished := make(chan events.SearchFinishedEvent, 1)
	unsubFinished := bus.Subscribe(func(e events.SearchFinishedEvent) { finished <- e })
	defer unsubFinished()

	runner := &fakeRunner{scores: map[string]float64{"a": 90, "b": 90, "c": 90, "d": 91}}
	e := newEngine(runner, bus, tiers([]int{10}, []string{"a", "b", "c", "d"}, quality))
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case ev := <-tierDone:
		if ev.Kept != 2 || ev.Duplicates != 2 || ev.IgnoreFactor != 0.5 {
			t.Errorf("tier event = %+v, want kept 2, duplicates 2, factor 0.5", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no tier event")
	}

	select {
	case ev := <-finished:
		if ev.RunID != "run-1" || ev.Results != 2 || ev.Duplicates != 2 || ev.Cancelled {
			t.Errorf("finished event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no finished event")
	}
}

func TestETA(t *testing.T) {
	tests := []struct {
		name   string
		last   time.Duration
		index  int
		total  int
		ignore float64
		want   time.Duration
	}{
		{"first of ten", 10 * time.Second, 1, 10, 1, 100 * time.Second},
		{"last", 10 * time.Second, 10, 10, 1, 10 * time.Second},
		{"sub-second truncated", 10900 * time.Millisecond, 2, 3, 1, 20 * time.Second},
		{"ignore factor", 10 * time.Second, 1, 10, 0.5, 50 * time.Second},
		{"factor truncates", 3 * time.Second, 1, 1, 0.5, time.Second},
		{"past the end", 10 * time.Second, 12, 10, 1, 0},
		{"no factor", 10 * time.Second, 1, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ETA(tt.last, tt.index, tt.total, tt.ignore)
			if got != tt.want {
				t.Errorf("ETA() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestETANeverNegative(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for index := 1; index <= total; index++ {
			if eta := ETA(time.Minute, index, total, 1); eta < 0 {
				t.Fatalf("ETA(index=%d, total=%d) = %v", index, total, eta)
			}
		}
	}
}

func TestIgnoreFactor(t *testing.T) {
	if got := IgnoreFactor(0, 0); got != 1 {
		t.Errorf("IgnoreFactor(0, 0) = %v, want 1", got)
	}
	if got := IgnoreFactor(3, 1); got != 0.75 {
		t.Errorf("IgnoreFactor(3, 1) = %v, want 0.75", got)
	}
}

func TestBenchmarkRunsEverything(t *testing.T) {
	runner := &fakeRunner{scores: map[string]float64{"a": 90, "b": 90}}
	b := NewBenchmark("run-2", runner, nil, testLogger())
	for _, tr := range tiers([]int{10, 15}, []string{"a", "b"}, quality) {
		b.Add(tr)
	}
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}

	out, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Results) != 4 || len(runner.quality) != 0 {
		t.Errorf("results=%d quality checks=%d, want 4/0", len(out.Results), len(runner.quality))
	}
}

func TestBenchmarkStopsOnError(t *testing.T) {
	runner := &fakeRunner{failAt: 2, failErr: trial.ErrLaunchFailure}
	b := NewBenchmark("run-3", runner, nil, testLogger())
	for _, tr := range tiers([]int{10}, []string{"a", "b", "c"}, nil) {
		b.Add(tr)
	}

	out, err := b.Run(context.Background())
	if !errors.Is(err, trial.ErrLaunchFailure) {
		t.Fatalf("Run() error = %v, want ErrLaunchFailure", err)
	}
	if len(out.Results) != 1 || len(runner.runs) != 2 {
		t.Errorf("results=%d runs=%d, want 1/2", len(out.Results), len(runner.runs))
	}
}
