// Package gpus enumerates NVIDIA GPUs so a run can pick one with -gpu.
package gpus

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// GPU is one device reported by nvidia-smi.
type GPU struct {
	Index int
	Name  string
	UUID  string
}

// Runner executes nvidia-smi and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func runNvidiaSMI(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "nvidia-smi", args...).Output()
}

// List returns the GPUs nvidia-smi knows about. A missing nvidia-smi is
// not an error, there are simply no GPUs to choose from.
func List(ctx context.Context) ([]GPU, error) {
	return list(ctx, runNvidiaSMI)
}

func list(ctx context.Context, run Runner) ([]GPU, error) {
	out, err := run(ctx, "-L")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return Parse(string(out)), nil
}

var gpuLine = regexp.MustCompile(`^GPU (\d+): (.+?)(?: \(UUID: ([^)]+)\))?$`)

// Parse reads `nvidia-smi -L` output, one "GPU N: name (UUID: ...)" line
// per device. Other lines (MIG devices) are skipped.
func Parse(output string) []GPU {
	var gpus []GPU
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := gpuLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		gpus = append(gpus, GPU{Index: index, Name: m[2], UUID: m[3]})
	}
	return gpus
}
