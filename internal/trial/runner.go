package trial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/smazurov/permutor/internal/ffmpeg"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/process"
	"github.com/smazurov/permutor/internal/progress"
)

// Options tunes a Runner. Zero values take the defaults below.
type Options struct {
	// WorkDir receives ffmpeg report files and decode intermediates.
	WorkDir     string
	VmafThreads int

	StatsPeriod    time.Duration
	ConnectTimeout time.Duration
	OverloadWindow time.Duration
	StallWindow    time.Duration

	// DiagnosticDuration bounds the visible rerun after a hard error.
	DiagnosticDuration time.Duration
	// DecodeGrace lets ffmpeg release the intermediate file of a decode run.
	DecodeGrace time.Duration
	// ExitGrace is how long a completed encode may take to exit on its own.
	ExitGrace time.Duration
	// KillGrace is the SIGINT to SIGKILL delay.
	KillGrace time.Duration
	// ScorerStartDelay gives the scorer time to bind its listen socket.
	ScorerStartDelay time.Duration
	QualityAttempts  int

	// Progress receives a frame bar when it is a terminal.
	Progress io.Writer
	OnSample func(progress.Sample)
}

const (
	DefaultDiagnosticDuration = 20 * time.Second
	DefaultDecodeGrace        = 5 * time.Second
	DefaultQualityAttempts    = 3
)

func (o *Options) setDefaults() {
	if o.WorkDir == "" {
		o.WorkDir = "."
	}
	if o.VmafThreads <= 0 {
		o.VmafThreads = 1
	}
	if o.StatsPeriod <= 0 {
		o.StatsPeriod = progress.DefaultStatsPeriod
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = progress.DefaultConnectTimeout
	}
	if o.OverloadWindow <= 0 {
		o.OverloadWindow = progress.DefaultOverloadWindow
	}
	if o.StallWindow <= 0 {
		o.StallWindow = progress.DefaultStallWindow
	}
	if o.DiagnosticDuration <= 0 {
		o.DiagnosticDuration = DefaultDiagnosticDuration
	}
	if o.DecodeGrace <= 0 {
		o.DecodeGrace = DefaultDecodeGrace
	}
	if o.ExitGrace <= 0 {
		o.ExitGrace = 5 * time.Second
	}
	if o.KillGrace <= 0 {
		o.KillGrace = 5 * time.Second
	}
	if o.ScorerStartDelay <= 0 {
		o.ScorerStartDelay = 500 * time.Millisecond
	}
	if o.QualityAttempts <= 0 {
		o.QualityAttempts = DefaultQualityAttempts
	}
}

// Runner executes trials strictly one at a time. Every child it starts is
// dead by the time Run or CheckQuality returns.
type Runner struct {
	opts         Options
	logger       logging.Logger
	ffmpegLogger logging.Logger

	launcher Launcher
	listen   func() (ProgressSource, error)
	freeAddr func() (string, error)
}

// NewRunner creates a runner that launches real ffmpeg processes.
func NewRunner(opts Options, logger, ffmpegLogger logging.Logger) *Runner {
	opts.setDefaults()
	r := &Runner{
		opts:         opts,
		logger:       logger,
		ffmpegLogger: ffmpegLogger,
		launcher:     ProcessLauncher{Logger: logger},
		freeAddr:     FreeAddr,
	}
	r.listen = func() (ProgressSource, error) {
		return progress.Listen(r.opts.ConnectTimeout)
	}
	return r
}

// Run executes the throughput part of t. An overload with detection enabled
// is retried once before the verdict is accepted. A stall or missing
// progress stream triggers a visible diagnostic rerun and ErrStallDetected.
func (r *Runner) Run(ctx context.Context, t Trial) (Result, error) {
	res := Result{
		Metadata:  t.Metadata,
		Bitrate:   t.Bitrate,
		Encoder:   t.Encoder,
		Settings:  t.Settings,
		DecodeRun: t.DecodeRun,
	}
	if err := t.Validate(); err != nil {
		return res, err
	}

	args := r.encodeArgs(t)
	decodeFile := DecodeFile(r.opts.WorkDir, t)
	if t.IsDecoding {
		if t.DecodeRun {
			args = args.DecodeInput(decodeFile)
		} else {
			args = args.DecodeOutput(decodeFile)
		}
	}

	start := time.Now()
	summary, err := r.watchEncode(ctx, t, args, t.DetectOverload)
	if err == nil && summary.State == progress.OverloadDetected {
		r.logger.Warn("Encoder was overloaded, retrying once", "encoder", t.Encoder, "bitrate", t.Bitrate)
		summary, err = r.watchEncode(ctx, t, args, t.DetectOverload)
	}
	if err != nil {
		return res, err
	}

	res.EncodeTime = time.Since(start)
	res.WasOverloaded = summary.WasOverloaded
	res.FPS = ComputeStats(summary.Samples)

	r.logger.Info("Trial finished",
		"average_fps", res.FPS.Avg,
		"one_percent_low", res.FPS.OnePercentLow,
		"ninetieth_percentile", res.FPS.NinetyPercentile,
		"overloaded", res.WasOverloaded)

	if t.DecodeRun {
		r.logger.Info("Giving ffmpeg a chance to let go of the decode file", "grace", r.opts.DecodeGrace)
		if err := sleepCtx(ctx, r.opts.DecodeGrace); err != nil {
			return res, err
		}
		if err := os.Remove(decodeFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to remove decode file", "path", decodeFile, "error", err)
		}
	}

	return res, nil
}

func (r *Runner) encodeArgs(t Trial) *ffmpeg.Args {
	args := ffmpeg.NewEncode(t.Input, t.Encoder, t.Settings, t.Bitrate, "")
	args.StatsPeriod = r.opts.StatsPeriod.Seconds()
	return args
}

// watchEncode runs one supervised encode and handles hard errors.
func (r *Runner) watchEncode(ctx context.Context, t Trial, args *ffmpeg.Args, detectOverload bool) (progress.Summary, error) {
	src, err := r.listen()
	if err != nil {
		return progress.Summary{}, fmt.Errorf("%w: %w", ErrLaunchFailure, err)
	}
	defer src.Close()

	a := *args
	a.ProgressAddr = src.Addr()
	r.logger.Debug("ffmpeg args without network calls", "args", a.NoNetwork().String())

	child, err := r.launch(a.Slice(), nil, false)
	if err != nil {
		return progress.Summary{}, err
	}

	summary, err := r.watch(ctx, src, t, detectOverload, child)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	if summary.HardError {
		r.diagnose(ctx, &a)
		if err == nil {
			err = fmt.Errorf("no progress for %v at frame %d", r.opts.StallWindow, summary.Frames)
		}
		return summary, fmt.Errorf("%w: %w", ErrStallDetected, err)
	}
	return summary, err
}

// watch supervises child through src and stops it before returning.
func (r *Runner) watch(ctx context.Context, src progress.Source, t Trial, detectOverload bool, child Child) (summary progress.Summary, err error) {
	bar := progress.NewBar(r.opts.Progress, t.Metadata.Frames, fmt.Sprintf("%dMb/s", t.Bitrate))
	defer func() {
		bar.Close(summary)
		r.stop(child, summary.State == progress.Complete)
	}()

	monitor := progress.NewMonitor(src, r.logger)
	return monitor.Watch(ctx, progress.Config{
		TotalFrames:    t.Metadata.Frames,
		TargetFPS:      t.Metadata.FPS,
		DetectOverload: detectOverload,
		StatsPeriod:    r.opts.StatsPeriod,
		OverloadWindow: r.opts.OverloadWindow,
		StallWindow:    r.opts.StallWindow,
		OnSample: func(s progress.Sample) {
			bar.Observe(s)
			if r.opts.OnSample != nil {
				r.opts.OnSample(s)
			}
		},
	})
}

// stop lets a completed child exit on its own for a while, then kills it.
func (r *Runner) stop(child Child, completed bool) {
	if completed {
		timer := time.NewTimer(r.opts.ExitGrace)
		defer timer.Stop()
		select {
		case <-child.Done():
		case <-timer.C:
		}
	}
	child.Kill()
}

func (r *Runner) launch(args, env []string, visible bool) (Child, error) {
	r.logger.Debug("Launching ffmpeg", "args", strings.Join(args, " "))

	child, err := r.launcher.Launch(process.Options{
		Name:            "ffmpeg",
		Args:            args,
		Env:             env,
		Dir:             r.opts.WorkDir,
		Visible:         visible,
		OutputLogger:    r.ffmpegLogger,
		LogParser:       ffmpeg.ParseLogLevel,
		GracefulTimeout: r.opts.KillGrace,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailure, err)
	}
	return child, nil
}

// diagnose reruns a failed encode without network endpoints and with its
// output visible, so the operator sees why ffmpeg fails.
func (r *Runner) diagnose(ctx context.Context, args *ffmpeg.Args) {
	diag := append([]string{"-hide_banner", "-loglevel", "level+info"}, args.NoNetwork().Slice()...)
	r.logger.Error("ffmpeg encountered an error, rerunning with output visible",
		"duration", r.opts.DiagnosticDuration,
		"args", strings.Join(diag, " "))

	child, err := r.launch(diag, nil, true)
	if err != nil {
		r.logger.Error("Failed to start diagnostic run", "error", err)
		return
	}
	defer child.Kill()

	timer := time.NewTimer(r.opts.DiagnosticDuration)
	defer timer.Stop()
	select {
	case <-child.Done():
	case <-timer.C:
	case <-ctx.Done():
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
