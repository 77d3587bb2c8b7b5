package trial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smazurov/permutor/internal/encoders"
	"github.com/smazurov/permutor/internal/ffmpeg"
)

// CheckQuality encodes t again, streams the output into a libvmaf scorer
// and returns the score. permIndex is 1-based and only names the reports
// kept from failed attempts.
func (r *Runner) CheckQuality(ctx context.Context, t Trial, permIndex int) (float64, time.Duration, error) {
	start := time.Now()
	if err := t.Validate(); err != nil {
		return 0, 0, err
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.QualityAttempts; attempt++ {
		r.logger.Info("Calculating VMAF score, might take longer than the encode depending on your CPU",
			"attempt", attempt, "max_attempts", r.opts.QualityAttempts)

		score, err := r.score(ctx, t, permIndex, attempt)
		if err == nil {
			r.logger.Info("VMAF score", "score", score)
			return score, time.Since(start), nil
		}
		if ctx.Err() != nil {
			return 0, time.Since(start), ctx.Err()
		}
		if errors.Is(err, ErrLaunchFailure) {
			return 0, time.Since(start), err
		}

		lastErr = err
		r.logger.Warn("Check encode quality failed", "attempt", attempt, "error", err)
	}

	return 0, time.Since(start), fmt.Errorf("%w after %d attempts: %w", ErrQualityMeasurement, r.opts.QualityAttempts, lastErr)
}

// score runs one scorer/encoder pair.
func (r *Runner) score(ctx context.Context, t Trial, permIndex, attempt int) (float64, error) {
	addr, err := r.freeAddr()
	if err != nil {
		return 0, err
	}

	encode := r.encodeArgs(t).StreamTo(addr, encoders.StreamFormat(t.Encoder))
	vmaf := encode.Vmaf(addr, t.Metadata.FPS, r.opts.VmafThreads)

	scorer, err := r.launch(vmaf.Slice(), []string{ffmpeg.ReportEnv(r.opts.WorkDir)}, false)
	if err != nil {
		return 0, err
	}
	defer scorer.Kill()

	if err := sleepCtx(ctx, r.opts.ScorerStartDelay); err != nil {
		return 0, err
	}

	src, err := r.listen()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLaunchFailure, err)
	}
	defer src.Close()
	encode.ProgressAddr = src.Addr()

	child, err := r.launch(encode.Slice(), nil, false)
	if err != nil {
		return 0, err
	}

	summary, err := r.watch(ctx, src, t, false, child)
	if err != nil {
		return 0, err
	}
	if summary.HardError {
		return 0, fmt.Errorf("encode feeding the scorer stalled at frame %d", summary.Frames)
	}

	r.logger.Info("VMAF calculation finishing up")
	code, err := scorer.Wait(ctx)
	if err != nil {
		return 0, err
	}

	report, err := ffmpeg.LatestReport(r.opts.WorkDir)
	if err != nil {
		return 0, err
	}

	var failure error
	if code == 0 {
		score, err := ffmpeg.ScoreFromReport(report)
		if err == nil {
			if err := os.Remove(report); err != nil {
				r.logger.Warn("Failed to remove scorer report", "path", report, "error", err)
			}
			return score, nil
		}
		failure = err
	} else {
		failure = fmt.Errorf("scorer exited with code %d", code)
	}

	if kept, err := ffmpeg.RenameFailedReport(report, permIndex, attempt); err == nil {
		r.logger.Warn("Kept scorer report for diagnosis", "path", kept)
	}
	return 0, failure
}
