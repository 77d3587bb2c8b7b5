package encoders

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// EncoderType represents the type of encoder (video, audio, subtitle)
type EncoderType string

const (
	VideoEncoder    EncoderType = "V"
	AudioEncoder    EncoderType = "A"
	SubtitleEncoder EncoderType = "S"
	Unknown         EncoderType = "?"
)

// Encoder represents an FFmpeg encoder
type Encoder struct {
	Type        EncoderType `json:"type" toml:"type"`
	Name        string      `json:"name" toml:"name"`
	Description string      `json:"description" toml:"description"`
	HWAccel     bool        `json:"hwaccel" toml:"hwaccel"`
	Supported   bool        `json:"supported" toml:"supported"`
}

var (
	encoderRegex = regexp.MustCompile(`^\s*([VASF\.]{6})\s+(\S+)\s+(.+)$`)
	hwaccelRegex = regexp.MustCompile(`(?i)(nvenc|qsv|amf|vaapi|videotoolbox|vdpau|cuda|dxva2|d3d11va|opencl|vulkan)`)
)

// IsFFmpegInstalled checks if ffmpeg is installed and available
func IsFFmpegInstalled() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ListCompiled returns the video encoders compiled into the local ffmpeg.
func ListCompiled(ctx context.Context) ([]Encoder, error) {
	if !IsFFmpegInstalled() {
		return nil, fmt.Errorf("ffmpeg is not installed or not in PATH")
	}

	output, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute encoders command: %w", err)
	}

	return parseEncoderOutput(string(output))
}

// ListHardware returns the compiled encoders that permutor has a catalog for.
func ListHardware(ctx context.Context) ([]Encoder, error) {
	all, err := ListCompiled(ctx)
	if err != nil {
		return nil, err
	}

	var hw []Encoder
	for _, e := range all {
		if e.Supported {
			hw = append(hw, e)
		}
	}
	return hw, nil
}

// parseEncoderOutput processes the output of ffmpeg -encoders and keeps
// only video encoders.
func parseEncoderOutput(output string) ([]Encoder, error) {
	result := []Encoder{}

	scanner := bufio.NewScanner(strings.NewReader(output))

	// Skip the legend until the "------" separator
	started := false
	for scanner.Scan() {
		line := scanner.Text()

		if !started {
			if strings.HasPrefix(strings.TrimSpace(line), "---") {
				started = true
			}
			continue
		}

		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		matches := encoderRegex.FindStringSubmatch(line)
		if len(matches) != 4 {
			continue
		}

		typeFlags, name, description := matches[1], matches[2], matches[3]
		if typeFlags[0] != 'V' {
			continue
		}

		result = append(result, Encoder{
			Type:        VideoEncoder,
			Name:        name,
			Description: strings.TrimSpace(description),
			HWAccel:     hwaccelRegex.MatchString(name) || hwaccelRegex.MatchString(description),
			Supported:   IsSupported(name),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading output: %w", err)
	}

	return result, nil
}
