package encoders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/permutor/internal/ffmpeg"
)

const validationTimeout = 10 * time.Second

// ValidationResults is the outcome of a validate-encoders run.
type ValidationResults struct {
	Timestamp      string   `toml:"timestamp"`
	FFmpegVersion  string   `toml:"ffmpeg_version"`
	TestDuration   int      `toml:"test_duration"`
	TestResolution string   `toml:"test_resolution"`
	Working        []string `toml:"working"`
	Failed         []string `toml:"failed"`
}

// CommandRunner executes ffmpeg with args and returns combined stderr output.
// It is swapped out in tests.
type CommandRunner func(ctx context.Context, args []string) ([]byte, error)

func runFFmpeg(ctx context.Context, args []string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Validator runs a short synthetic encode per encoder with its default settings.
type Validator struct {
	logger *slog.Logger
	run    CommandRunner
	gpu    int
}

// NewValidator creates a validator. gpu is passed to catalogs that accept a device index.
func NewValidator(logger *slog.Logger, gpu int) *Validator {
	return &Validator{logger: logger, run: runFFmpeg, gpu: gpu}
}

// validationArgs builds a two second lavfi encode discarded to the null muxer.
func validationArgs(c Catalog) []string {
	args := []string{
		"-hide_banner", "-y",
		"-f", "lavfi",
		"-i", "testsrc2=duration=2:size=640x480:rate=30",
		"-t", "2",
		"-c:v", c.Encoder(),
	}
	args = append(args, ffmpeg.SplitSettings(c.DefaultSettings())...)
	return append(args, "-f", "null", "-")
}

// Validate tests a single encoder.
func (v *Validator) Validate(ctx context.Context, encoder string) error {
	catalog, err := NewCatalog(encoder, v.gpu)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	args := validationArgs(catalog)
	v.logger.Debug("Validating encoder", "encoder", encoder, "args", strings.Join(args, " "))

	out, err := v.run(ctx, args)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("encoder %s timed out after %v", encoder, validationTimeout)
		}
		return fmt.Errorf("encoder %s failed: %w (%s)", encoder, err, lastLine(out))
	}
	return nil
}

// ValidateAll validates every supported encoder in names.
func (v *Validator) ValidateAll(ctx context.Context, names []string) *ValidationResults {
	results := &ValidationResults{
		Timestamp:      time.Now().Format(time.RFC3339),
		FFmpegVersion:  getFFmpegVersion(),
		TestDuration:   2,
		TestResolution: "640x480",
		Working:        []string{},
		Failed:         []string{},
	}

	for _, name := range names {
		if !IsSupported(name) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if err := v.Validate(ctx, name); err != nil {
			v.logger.Warn("Encoder failed validation", "encoder", name, "error", err)
			results.Failed = append(results.Failed, name)
			continue
		}
		v.logger.Info("Encoder working", "encoder", name)
		results.Working = append(results.Working, name)
	}

	return results
}

// SaveValidationResults writes results to path as TOML.
func SaveValidationResults(path string, results *ValidationResults) error {
	data, err := toml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal validation results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write validation results: %w", err)
	}
	return nil
}

// LoadValidationResults reads results previously written by SaveValidationResults.
func LoadValidationResults(path string) (*ValidationResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read validation results: %w", err)
	}
	var results ValidationResults
	if err := toml.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse validation results: %w", err)
	}
	return &results, nil
}

// PrintValidationSummary prints a summary of validation results
func PrintValidationSummary(results *ValidationResults) {
	fmt.Println("\n=== VALIDATION SUMMARY ===")

	fmt.Printf("Encoders working: %d\n", len(results.Working))
	if len(results.Working) > 0 {
		fmt.Printf("  Working: %s\n", strings.Join(results.Working, ", "))
	}

	if len(results.Failed) > 0 {
		fmt.Printf("\nFailed encoders: %s\n", strings.Join(results.Failed, ", "))
	}
}

// getFFmpegVersion gets the FFmpeg version string
func getFFmpegVersion() string {
	output, err := exec.Command("ffmpeg", "-version").Output()
	if err != nil {
		return "unknown"
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		// "ffmpeg version 7.1.1 Copyright..."
		parts := strings.Fields(lines[0])
		if len(parts) >= 3 {
			return parts[2]
		}
	}

	return "unknown"
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
