package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/permutor/internal/encoders"
	"github.com/smazurov/permutor/internal/ffmpeg"
	"github.com/smazurov/permutor/internal/inputs"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/permute"
	"github.com/smazurov/permutor/internal/search"
	"github.com/smazurov/permutor/internal/trial"
)

// probedInput is a source file with its metadata.
type probedInput struct {
	path string
	meta ffmpeg.Metadata
}

// CreateBenchmarkCmd creates the benchmark command. opts returns the root
// options once they are parsed.
func CreateBenchmarkCmd(opts func() RunOptions) *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the standard benchmark",
		Long: `Encodes every standard source file (or --source-file) once with the encoder's ` +
			`recommended settings at the recommended bitrate for its resolution and frame rate.`,
		Run: func(_ *cobra.Command, _ []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			Exit(RunBenchmark(ctx, opts(), decode))
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "Also benchmark hardware decoding of each encode")
	return cmd
}

// RunBenchmark runs the standard benchmark.
func RunBenchmark(ctx context.Context, opts RunOptions, decode bool) error {
	if !encoders.IsSupported(opts.Encoder) {
		return fmt.Errorf("unsupported encoder %q, see list-encoders", opts.Encoder)
	}
	if err := checkTools(); err != nil {
		return err
	}

	paths := []string{opts.sourcePath()}
	if opts.SourceFile == "" {
		dir := opts.FilesDirectory
		if dir == "" {
			dir = "."
		}
		if missing := inputs.Missing(dir); len(missing) > 0 {
			return fmt.Errorf("missing standard source files in %s: %s (see fetch-inputs)", dir, strings.Join(missing, ", "))
		}
		paths = inputs.Paths(dir)
	}

	catalog, err := encoders.NewCatalog(opts.Encoder, opts.GPU)
	if err != nil {
		return err
	}

	probed := make([]probedInput, 0, len(paths))
	for _, path := range paths {
		meta, err := ffmpeg.Probe(ctx, path)
		if err != nil {
			return err
		}
		probed = append(probed, probedInput{path: path, meta: meta})
	}

	trials, err := buildBenchmark(catalog, probed, decode, opts.DetectOverload)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}

	bench := search.NewBenchmark(s.runID, s.runner, s.bus, s.logger)
	for _, t := range trials {
		bench.Add(t)
	}
	s.logger.Info("Benchmark queued", "count", bench.Len(), "decode", decode)

	out, runErr := bench.Run(ctx)
	return s.finish(out, true, runErr)
}

// buildBenchmark creates one trial per input with the standard settings and
// the recommended bitrate, followed by its decode run when decode is set.
func buildBenchmark(catalog encoders.Catalog, probed []probedInput, decode, detectOverload bool) ([]trial.Trial, error) {
	settings := permute.New(catalog).RunStandardOnly()[0]

	var trials []trial.Trial
	for _, in := range probed {
		bitrate, err := permute.BitrateFor(catalog.BaseBitrates(), in.meta.Width, in.meta.Height, in.meta.FPS)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.path, err)
		}

		t := trial.Trial{
			Input:          in.path,
			Encoder:        catalog.Encoder(),
			Settings:       settings,
			Bitrate:        bitrate,
			Metadata:       in.meta,
			DetectOverload: detectOverload,
			IsDecoding:     decode,
		}
		trials = append(trials, t)

		if decode {
			t.DecodeRun = true
			trials = append(trials, t)
		}
	}
	return trials, nil
}

// Exit logs err and exits non-zero. Cancellation is a clean exit.
func Exit(err error) {
	if err == nil {
		return
	}
	logger := logging.GetLogger("main")
	if errors.Is(err, context.Canceled) {
		logger.Info("Run cancelled")
		return
	}
	switch {
	case errors.Is(err, trial.ErrStallDetected):
		logger.Error("ffmpeg stopped making progress, check the ffmpeg output above and your drivers", "error", err)
	case errors.Is(err, trial.ErrLaunchFailure):
		logger.Error("Could not start ffmpeg, make sure it is installed and in PATH", "error", err)
	case errors.Is(err, trial.ErrQualityMeasurement):
		logger.Error("Could not measure quality, check the kept ffmpeg report files", "error", err)
	default:
		logger.Error("Run failed", "error", err)
	}
	os.Exit(1)
}
