package ffmpeg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestExtractVmafScore(t *testing.T) {
	score, ok := ExtractVmafScore("[Parsed_libvmaf_0 @ 00000169cf14fc00] VMAF score: 98.644730")
	if !ok || score != 98.644730 {
		t.Errorf("ExtractVmafScore() = %v, %v", score, ok)
	}

	if _, ok := ExtractVmafScore("frame= 100 fps=60"); ok {
		t.Error("ExtractVmafScore() matched a non-score line")
	}
}

func TestLatestReport(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, filepath.Join(dir, "ffmpeg-1-old.log"), "", now.Add(-time.Minute))
	writeFile(t, filepath.Join(dir, "ffmpeg-2-new.log"), "", now)
	writeFile(t, filepath.Join(dir, "h264_nvenc-1920x1080-60.log"), "", now.Add(time.Minute))

	got, err := LatestReport(dir)
	if err != nil {
		t.Fatalf("LatestReport() error = %v", err)
	}
	if filepath.Base(got) != "ffmpeg-2-new.log" {
		t.Errorf("LatestReport() = %s", got)
	}
}

func TestLatestReportIgnoresKeptReports(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, filepath.Join(dir, "ffmpeg-20240101-120001.log"), "", now.Add(-time.Minute))
	writeFile(t, filepath.Join(dir, "ffmpeg-20240101-120002-perm-4-attempt-1.log"), "", now)

	got, err := LatestReport(dir)
	if err != nil {
		t.Fatalf("LatestReport() error = %v", err)
	}
	if filepath.Base(got) != "ffmpeg-20240101-120001.log" {
		t.Errorf("LatestReport() = %s, want the report not yet kept", got)
	}

	if err := os.Remove(got); err != nil {
		t.Fatal(err)
	}
	if _, err := LatestReport(dir); !errors.Is(err, ErrNoReport) {
		t.Errorf("LatestReport() error = %v, want ErrNoReport with only kept reports left", err)
	}
}

func TestLatestReportEmpty(t *testing.T) {
	if _, err := LatestReport(t.TempDir()); !errors.Is(err, ErrNoReport) {
		t.Errorf("LatestReport() error = %v, want ErrNoReport", err)
	}
}

func TestScoreFromReport(t *testing.T) {
	dir := t.TempDir()

	// score line position varies between ffmpeg versions
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr error
	}{
		{
			name:    "third from last",
			content: "a\nb\n[Parsed_libvmaf_0 @ 0x1] VMAF score: 95.123456\nc\nd\n",
			want:    95.123456,
		},
		{
			name:    "last line",
			content: "a\n[Parsed_libvmaf_0 @ 0x1] VMAF score: 80.5\n",
			want:    80.5,
		},
		{
			name:    "missing",
			content: "a\nb\nc\n",
			wantErr: ErrNoScore,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "ffmpeg-"+string(rune('a'+i))+".log")
			writeFile(t, path, tt.content, time.Now())

			got, err := ScoreFromReport(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ScoreFromReport() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScoreFromReport() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ScoreFromReport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenameFailedReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg-20240101-120000.log")
	writeFile(t, path, "x", time.Now())

	got, err := RenameFailedReport(path, 4, 2)
	if err != nil {
		t.Fatalf("RenameFailedReport() error = %v", err)
	}
	if filepath.Base(got) != "ffmpeg-20240101-120000-perm-4-attempt-2.log" {
		t.Errorf("RenameFailedReport() = %s", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original report still exists")
	}
}

func TestReportEnv(t *testing.T) {
	got := ReportEnv("/var/log/permutor")
	if got != "FFREPORT=file=/var/log/permutor/ffmpeg-%p-%t.log:level=32" {
		t.Errorf("ReportEnv() = %s", got)
	}
	if !strings.Contains(ReportEnv(`C:\logs`), `C\:\\logs`) {
		t.Errorf("ReportEnv() did not escape: %s", ReportEnv(`C:\logs`))
	}
}

func TestParseProbeLine(t *testing.T) {
	got, err := ParseProbeLine("1920,1080,60/1,1923\n")
	if err != nil {
		t.Fatalf("ParseProbeLine() error = %v", err)
	}
	want := Metadata{Width: 1920, Height: 1080, FPS: 60, Frames: 1923}
	if got != want {
		t.Errorf("ParseProbeLine() = %+v, want %+v", got, want)
	}
	if got.Resolution() != "1920x1080" {
		t.Errorf("Resolution() = %s", got.Resolution())
	}

	for _, bad := range []string{"", "1920,1080", "x,1080,60/1,10", "1920,1080,abc,10"} {
		if _, err := ParseProbeLine(bad); err == nil {
			t.Errorf("ParseProbeLine(%q) expected error", bad)
		}
	}
}

func TestParseFrameLine(t *testing.T) {
	tests := []struct {
		line string
		want uint64
		ok   bool
	}{
		{"frame=120", 120, true},
		{"frame=  7", 7, true},
		{"fps=60.00", 0, false},
		{"progress=continue", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFrameLine(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFrameLine(%q) = %d, %v, want %d, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[error] Unknown encoder", "error", "Unknown encoder"},
		{"[h264_nvenc @ 0x55] [error] No capable devices found", "error", "[h264_nvenc @ 0x55] No capable devices found"},
		{"[info] Stream mapping:", "info", "Stream mapping:"},
		{"[warning] Last message repeated 3 times", "debug", "Last message repeated 3 times"},
		{"frame=  100 fps=60 q=-0.0 size=N/A", "debug", "frame=  100 fps=60 q=-0.0 size=N/A"},
		{"Input #0, yuv4mpegpipe, from '1080-60.y4m':", "info", "Input #0, yuv4mpegpipe, from '1080-60.y4m':"},
		{"[unknown] not a level", "info", "[unknown] not a level"},
	}
	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = %q, %q", tt.line, level, msg)
		}
	}
}
