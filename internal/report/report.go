// Package report renders search outcomes: the results file written next to
// the logs, a console summary table and live console output driven by the
// event bus.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/permutor/internal/search"
	"github.com/smazurov/permutor/internal/trial"
)

const rule = "=================================================================================================================================================================="

// Report is everything one results file holds.
type Report struct {
	RunID string
	// Host describes the machine the trials ran on.
	Host    string
	Outcome search.Outcome
	// Benchmark selects the benchmark file name.
	Benchmark bool
}

// FileName returns the results file name: <encoder>-<WxH>-<fps>.log for a
// permutation run and <encoder>-benchmark.log for a benchmark.
func (r Report) FileName() string {
	first := r.Outcome.Results[0]
	if r.Benchmark {
		return fmt.Sprintf("%s-benchmark.log", first.Encoder)
	}
	return fmt.Sprintf("%s-%s-%d.log", first.Encoder, first.Metadata.Resolution(), first.Metadata.FPS)
}

// WriteFile writes the report into dir and returns its path. A report
// without results is not written.
func WriteFile(dir string, r Report) (string, error) {
	if len(r.Outcome.Results) == 0 {
		return "", fmt.Errorf("no results to report")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	w := bufio.NewWriter(f)
	r.Write(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Write renders the report. Write errors surface from the caller's flush.
func (r Report) Write(w io.Writer) {
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
	if r.Host != "" {
		fmt.Fprintf(w, "Host: %s\n", r.Host)
	}

	fmt.Fprintln(w, "Results from entire permutation:")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "   [Resolution]\t[FPS]\t[Bitrate]\t[Encode Time]\t[VMAF Time]\t[VMAF Score]\t[Average FPS]\t[1%'ile]\t[90%'ile]\t[Encoder Settings]")
	for _, res := range r.Outcome.Results {
		fmt.Fprintln(w, Row(res))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Benchmark runtime: %s\n\n", FormatDHMS(r.Outcome.Runtime))

	writeDuplicates(w, r.Outcome)
	fmt.Fprintln(w, rule)
}

// Row renders one result line. Overloaded results are marked with [O].
func Row(res trial.Result) string {
	var b strings.Builder

	marker := "   "
	if res.WasOverloaded {
		marker = "[O]"
	}
	fmt.Fprintf(&b, "%s%dx%d\t%d\t%dMb/s", marker, res.Metadata.Width, res.Metadata.Height, res.Metadata.FPS, res.Bitrate)

	// keep the columns aligned with or without a score
	var score string
	switch {
	case res.WasOverloaded:
		score = fmt.Sprintf("%.5f\t\t", res.QualityScore)
	case res.HasQuality:
		score = fmt.Sprintf("%.5f\t", res.QualityScore)
	default:
		score = "0.00000\t\t"
	}

	fmt.Fprintf(&b, "\t\t%s\t\t%s\t\t%s%d\t\t%d\t\t%d\t\t%s",
		FormatDHMS(res.EncodeTime), FormatDHMS(res.QualityTime), score,
		res.FPS.Avg, res.FPS.OnePercentLow, res.FPS.NinetyPercentile, res.Settings)
	return b.String()
}

// writeDuplicates lists, per kept first-tier result, the settings that were
// recorded with the same score.
func writeDuplicates(w io.Writer, out search.Outcome) {
	headerWritten := false
	for _, kept := range out.Results {
		if kept.Bitrate != out.FirstBitrate || !kept.HasQuality {
			continue
		}

		var ignored []trial.Result
		for _, d := range out.Duplicates {
			if d.ScoreKey() == kept.ScoreKey() {
				ignored = append(ignored, d)
			}
		}
		if len(ignored) == 0 {
			continue
		}

		if !headerWritten {
			fmt.Fprintln(w, "Encoder settings that produced identical scores:")
			fmt.Fprintln(w, rule)
			headerWritten = true
		}

		fmt.Fprintf(w, "Identical score: %s\n", kept.ScoreKey())
		fmt.Fprintf(w, "\tEncoded: [%s]\n", kept.Settings)
		for _, d := range ignored {
			fmt.Fprintf(w, "\tIgnored: [%s]\n", d.Settings)
		}
		fmt.Fprintln(w)
	}
}

// FormatDHMS renders d in whole seconds as 1d2h3m4s, leaving out zero
// parts. Zero renders as 0s.
func FormatDHMS(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0s"
	}

	var b strings.Builder
	for _, unit := range []struct {
		suffix string
		size   int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	} {
		if n := secs / unit.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, unit.suffix)
			secs -= n * unit.size
		}
	}
	return b.String()
}
