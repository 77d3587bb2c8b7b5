package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/permutor/internal/events"
	"github.com/smazurov/permutor/internal/ffmpeg"
	"github.com/smazurov/permutor/internal/search"
	"github.com/smazurov/permutor/internal/trial"
)

var meta = ffmpeg.Metadata{Width: 1920, Height: 1080, FPS: 60, Frames: 600}

func result(bitrate int, settings string, score float64, overloaded bool) trial.Result {
	return trial.Result{
		Metadata:      meta,
		Bitrate:       bitrate,
		Encoder:       "hevc_nvenc",
		Settings:      settings,
		WasOverloaded: overloaded,
		EncodeTime:    75 * time.Second,
		QualityScore:  score,
		HasQuality:    score != 0,
		QualityTime:   3 * time.Second,
		FPS:           trial.Stats{Avg: 142, OnePercentLow: 120, NinetyPercentile: 150},
	}
}

func TestFormatDHMS(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{999 * time.Millisecond, "0s"},
		{59 * time.Second, "59s"},
		{time.Hour + time.Second, "1h1s"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1d2h3m4s"},
		{-time.Second, "0s"},
	}

	for _, tt := range tests {
		if got := FormatDHMS(tt.in); got != tt.want {
			t.Errorf("FormatDHMS(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRow(t *testing.T) {
	got := Row(result(20, "-preset p1", 95.5, false))
	want := "   1920x1080\t60\t20Mb/s\t\t1m15s\t\t3s\t\t95.50000\t142\t\t120\t\t150\t\t-preset p1"
	if got != want {
		t.Errorf("Row() =\n%q\nwant\n%q", got, want)
	}

	overloaded := Row(result(20, "-preset p7", 0, true))
	if !strings.HasPrefix(overloaded, "[O]1920x1080") || !strings.Contains(overloaded, "0.00000\t\t142") {
		t.Errorf("overloaded Row() = %q", overloaded)
	}

	zero := result(20, "-preset p4", 0, false)
	zero.HasQuality = true
	if got := Row(zero); !strings.Contains(got, "\t\t0.00000\t142") {
		t.Errorf("measured zero score Row() = %q, want the score column", got)
	}
	if got := Row(result(20, "-preset p4", 0, false)); !strings.Contains(got, "0.00000\t\t142") {
		t.Errorf("unscored Row() = %q, want the empty score column", got)
	}
}

func TestFileName(t *testing.T) {
	r := Report{Outcome: search.Outcome{Results: []trial.Result{result(10, "a", 0, false)}}}
	if got := r.FileName(); got != "hevc_nvenc-1920x1080-60.log" {
		t.Errorf("FileName() = %s", got)
	}
	r.Benchmark = true
	if got := r.FileName(); got != "hevc_nvenc-benchmark.log" {
		t.Errorf("benchmark FileName() = %s", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	r := Report{
		RunID: "0b5c",
		Host:  "Ryzen 9, 16 threads",
		Outcome: search.Outcome{
			Results: []trial.Result{
				result(10, "-preset p1", 90, false),
				result(10, "-preset p2", 91, false),
				result(15, "-preset p1", 93, false),
			},
			Duplicates: []trial.Result{
				result(10, "-preset p3", 90, false),
				result(10, "-preset p4", 90, false),
			},
			FirstBitrate: 10,
			Runtime:      time.Hour,
		},
	}

	path, err := WriteFile(dir, r)
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("report written to %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	for _, want := range []string{
		"Run: 0b5c\n",
		"Host: Ryzen 9, 16 threads\n",
		"Results from entire permutation:\n",
		"Benchmark runtime: 1h\n",
		"Encoder settings that produced identical scores:\n",
		"Identical score: 90\n\tEncoded: [-preset p1]\n\tIgnored: [-preset p3]\n\tIgnored: [-preset p4]\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Identical score: 91") || strings.Contains(got, "Identical score: 93") {
		t.Errorf("report lists scores without duplicates:\n%s", got)
	}
	if n := strings.Count(got, "[-preset p"); n != 3 {
		t.Errorf("duplicates section entries = %d, want 3", n)
	}
}

func TestWriteFileWithoutResults(t *testing.T) {
	if _, err := WriteFile(t.TempDir(), Report{}); err == nil {
		t.Error("WriteFile() wrote an empty report")
	}
}

func TestRenderTable(t *testing.T) {
	if RenderTable(nil) != "" {
		t.Error("RenderTable(nil) not empty")
	}

	out := RenderTable([]trial.Result{result(20, "-preset p1", 95.5, false), result(25, "-preset p7", 0, true)})
	for _, want := range []string{"Resolution", "1920x1080", "95.50000", "25Mb/s", "yes", "-preset p7"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestTable(t *testing.T) {
	if Table(nil, [][]string{{"x"}}) != "" {
		t.Error("Table() without headers not empty")
	}

	out := Table([]string{"GPU", "Name"}, [][]string{{"0"}, {"1", "RTX 4090", "extra"}}, 0, 7)
	for _, want := range []string{"GPU", "RTX 4090"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "extra") {
		t.Errorf("cells past the header kept:\n%s", out)
	}
	if strings.Count(out, "\n") != strings.Count(Table([]string{"GPU", "Name"}, [][]string{{"0", ""}, {"1", "RTX 4090"}}), "\n") {
		t.Errorf("short row not padded:\n%s", out)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.TrialStarted(events.TrialStartedEvent{Index: 1, Total: 21, Encoder: "h264_nvenc", Resolution: "1920x1080", FPS: 60, Bitrate: 10, Settings: "-preset p1", ETASeconds: -1})
	c.TrialStarted(events.TrialStartedEvent{Index: 2, Total: 21, ETASeconds: 125})
	c.TrialStarted(events.TrialStartedEvent{Index: 3, Total: 4, IsDecoding: true, DecodeRun: true, ETASeconds: -1})
	c.TrialSkipped(events.TrialSkippedEvent{Index: 4})
	c.TrialCompleted(events.TrialCompletedEvent{AvgFPS: 61, HasScore: true, VmafScore: 96.1})
	c.SearchFinished(events.SearchFinishedEvent{Seconds: 3700})

	got := buf.String()
	for _, want := range []string{
		"[Permutation:\t1/21]\n",
		"[Encoder:\th264_nvenc]\n",
		"[ETR: 2m5s]\n",
		"[Decode Benchmark]\n",
		"identical vmaf score",
		"VMAF score:\t96.1\n",
		"Benchmark runtime: 1h1m40s\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("console output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "[ETR:") != 1 {
		t.Errorf("ETA printed for unknown estimates:\n%s", got)
	}
}
