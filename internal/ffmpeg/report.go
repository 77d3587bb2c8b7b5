package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoReport is returned when a directory holds no ffmpeg report file.
var ErrNoReport = errors.New("no ffmpeg report file found")

// ErrNoScore is returned when a report holds no VMAF score line.
var ErrNoScore = errors.New("no VMAF score in report")

var (
	reportName = regexp.MustCompile(`^ffmpeg.*\.log$`)
	// keptReport matches reports already renamed by RenameFailedReport.
	keptReport = regexp.MustCompile(`-perm-\d+-attempt-\d+\.log$`)
	vmafScore  = regexp.MustCompile(`VMAF score: (\d+\.\d+)`)
)

// ReportEnv returns the FFREPORT environment entry that makes -report write
// its file into dir.
func ReportEnv(dir string) string {
	// ':' and '\' are separators in the FFREPORT grammar
	escaped := strings.NewReplacer(`\`, `\\`, `:`, `\:`).Replace(dir)
	return "FFREPORT=file=" + escaped + "/ffmpeg-%p-%t.log:level=32"
}

// LatestReport returns the most recently modified ffmpeg report in dir.
// Reports kept from failed attempts are ignored.
func LatestReport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read report directory: %w", err)
	}

	var latest string
	var latestTime time.Time
	for _, e := range entries {
		if !e.Type().IsRegular() || !reportName.MatchString(e.Name()) || keptReport.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(dir, e.Name())
			latestTime = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoReport, dir)
	}
	return latest, nil
}

// ExtractVmafScore parses the score from a single libvmaf summary line.
func ExtractVmafScore(line string) (float64, bool) {
	m := vmafScore.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// ScoreFromReport scans the whole report and returns the last VMAF score it
// contains. Position of the line within the file does not matter.
func ScoreFromReport(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	var score float64
	found := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if s, ok := ExtractVmafScore(scanner.Text()); ok {
			score = s
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read report: %w", err)
	}

	if !found {
		return 0, fmt.Errorf("%w: %s", ErrNoScore, path)
	}
	return score, nil
}

// RenameFailedReport keeps a report from a failed scoring attempt as
// "<name>-perm-<index>-attempt-<attempt>.log" next to the original.
func RenameFailedReport(path string, index, attempt int) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".log")
	dst := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s-perm-%d-attempt-%d.log", base, index, attempt))
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("failed to rename report: %w", err)
	}
	return dst, nil
}
