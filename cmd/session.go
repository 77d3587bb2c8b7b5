package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/smazurov/permutor/internal/events"
	"github.com/smazurov/permutor/internal/host"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/metrics"
	"github.com/smazurov/permutor/internal/metrics/exporters"
	"github.com/smazurov/permutor/internal/progress"
	"github.com/smazurov/permutor/internal/report"
	"github.com/smazurov/permutor/internal/search"
	"github.com/smazurov/permutor/internal/trial"
	"github.com/smazurov/permutor/internal/version"
)

// ErrRunInProgress means another run holds the lock on the log directory.
var ErrRunInProgress = errors.New("another permutor run is using this log directory")

const lockFile = ".permutor.lock"

// checkTools fails before any probing or locking when ffmpeg or ffprobe is
// missing from PATH.
func checkTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s not found in PATH", trial.ErrLaunchFailure, tool)
		}
	}
	return nil
}

// RunOptions is what permute and benchmark runs take from the CLI.
type RunOptions struct {
	Encoder              string
	Bitrate              int
	MaxBitrate           int
	CheckQuality         bool
	AllowDuplicateScores bool
	DetectOverload       bool
	SourceFile           string
	FilesDirectory       string
	LogOutputDirectory   string
	TestRun              bool
	GPU                  int
	Verbose              bool
	MetricsAddr          string
}

func (o RunOptions) logDir() string {
	if o.LogOutputDirectory == "" {
		return "."
	}
	return o.LogOutputDirectory
}

// sourcePath joins the source file to the files directory when both are set.
func (o RunOptions) sourcePath() string {
	if o.FilesDirectory != "" && o.SourceFile != "" && !filepath.IsAbs(o.SourceFile) {
		return filepath.Join(o.FilesDirectory, o.SourceFile)
	}
	return o.SourceFile
}

// session holds the per-run plumbing shared by permute and benchmark.
type session struct {
	opts   RunOptions
	runID  string
	logger *slog.Logger
	host   host.Info
	bus    *events.Bus
	runner *trial.Runner

	lock   *flock.Flock
	unsubs []func()
}

func newSession(ctx context.Context, opts RunOptions) (*session, error) {
	dir := opts.logDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, dir)
	}

	s := &session{
		opts:  opts,
		runID: uuid.NewString(),
		host:  host.Detect(ctx),
		bus:   events.New(),
		lock:  lock,
	}
	s.logger = logging.GetLogger("search").With("run_id", s.runID)
	s.logger.Info("Starting run", "version", version.Get().Full(), "encoder", opts.Encoder, "host", s.host.String())

	s.unsubs = append(s.unsubs,
		report.NewConsole(os.Stdout).Subscribe(s.bus),
		metrics.Subscribe(s.bus),
	)

	if opts.MetricsAddr != "" {
		go func() {
			if err := exporters.Serve(ctx, opts.MetricsAddr, s.logger); err != nil {
				s.logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	encoder := opts.Encoder
	s.runner = trial.NewRunner(trial.Options{
		WorkDir:     dir,
		VmafThreads: s.host.VmafThreads(),
		Progress:    os.Stderr,
		OnSample: func(sample progress.Sample) {
			s.bus.Publish(events.ProgressSampleEvent{Encoder: encoder, Frame: sample.Frame, FPS: sample.FPS})
		},
	}, logging.GetLogger("trial").With("run_id", s.runID), logging.GetLogger("ffmpeg"))

	return s, nil
}

// finish writes the report for whatever completed and releases the lock.
// runErr is returned unchanged.
func (s *session) finish(out search.Outcome, benchmark bool, runErr error) error {
	defer s.close()

	if len(out.Results) == 0 {
		return runErr
	}

	path, err := report.WriteFile(s.opts.logDir(), report.Report{
		RunID:     s.runID,
		Host:      s.host.String(),
		Outcome:   out,
		Benchmark: benchmark,
	})
	if err != nil {
		s.logger.Error("Failed to write report", "error", err)
	} else {
		s.logger.Info("Wrote report", "path", path)
	}

	fmt.Fprintln(os.Stdout, report.RenderTable(out.Results))
	return runErr
}

func (s *session) close() {
	for _, u := range s.unsubs {
		u()
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("Failed to release run lock", "error", err)
	}
}
