package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/smazurov/permutor/internal/encoders"
	"github.com/smazurov/permutor/internal/ffmpeg"
	"github.com/smazurov/permutor/internal/permute"
	"github.com/smazurov/permutor/internal/search"
	"github.com/smazurov/permutor/internal/trial"
)

// RunPermute sweeps every settings permutation of the encoder over the
// bitrate tiers and writes the report.
func RunPermute(ctx context.Context, opts RunOptions) error {
	if err := validatePermute(opts); err != nil {
		return err
	}
	if err := checkTools(); err != nil {
		return err
	}

	source := opts.sourcePath()
	meta, err := ffmpeg.Probe(ctx, source)
	if err != nil {
		return err
	}

	catalog, err := encoders.NewCatalog(opts.Encoder, opts.GPU)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	logOptions(s, opts)

	engine := search.NewEngine(s.runID, s.runner, s.bus, s.logger)
	for _, t := range buildPermutations(catalog, source, meta, opts) {
		engine.Add(t)
	}
	s.logger.Info("Permutations queued", "count", engine.Len(), "input", meta.String())

	out, runErr := engine.Run(ctx)
	return s.finish(out, false, runErr)
}

func validatePermute(opts RunOptions) error {
	if !encoders.IsSupported(opts.Encoder) {
		return fmt.Errorf("unsupported encoder %q, see list-encoders", opts.Encoder)
	}
	if opts.SourceFile == "" {
		return errors.New("no source file was provided to run on, please specify one with --source-file")
	}
	if opts.Bitrate <= 0 {
		return fmt.Errorf("bitrate must be positive, got %d", opts.Bitrate)
	}
	return nil
}

// buildPermutations lays out the trials tier by tier, every settings
// permutation per bitrate. A test run keeps only the first permutation of
// each tier.
func buildPermutations(catalog encoders.Catalog, source string, meta ffmpeg.Metadata, opts RunOptions) []trial.Trial {
	p := permute.New(catalog)

	var trials []trial.Trial
	for _, bitrate := range permute.BitrateTiers(opts.Bitrate, opts.MaxBitrate, permute.DefaultBitrateStep) {
		p.Init()
		for {
			_, settings, ok := p.Next()
			if !ok {
				break
			}
			trials = append(trials, trial.Trial{
				Input:           source,
				Encoder:         catalog.Encoder(),
				Settings:        settings,
				Bitrate:         bitrate,
				Metadata:        meta,
				CheckQuality:    opts.CheckQuality,
				DetectOverload:  opts.DetectOverload,
				AllowDuplicates: opts.AllowDuplicateScores,
			})
			if opts.TestRun {
				break
			}
		}
	}
	return trials
}

func logOptions(s *session, opts RunOptions) {
	if opts.DetectOverload {
		s.logger.Info("Encoding will stop if overload detected")
	}
	if opts.CheckQuality {
		s.logger.Info("Calculating VMAF score", "threads", s.host.VmafThreads())
	}
	if opts.AllowDuplicateScores {
		s.logger.Info("Ignoring whether expected VMAF score will be duplicated")
	}
	if opts.TestRun {
		s.logger.Info("Test run, only one permutation per bitrate")
	}
}
