package gpus

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

const smiOutput = `GPU 0: NVIDIA GeForce RTX 4090 (UUID: GPU-6f1c1f6e-7c2e-3b0e-9d0e-1c2d3e4f5a6b)
GPU 1: NVIDIA RTX A2000 (UUID: GPU-0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d)
  MIG 1g.5gb      Device  0: (UUID: MIG-11111111-2222-3333-4444-555555555555)
`

func TestParse(t *testing.T) {
	gpus := Parse(smiOutput)
	if len(gpus) != 2 {
		t.Fatalf("Parse() returned %d gpus, want 2", len(gpus))
	}
	if gpus[0].Index != 0 || gpus[0].Name != "NVIDIA GeForce RTX 4090" {
		t.Errorf("gpu 0 = %+v", gpus[0])
	}
	if gpus[1].Index != 1 || gpus[1].UUID != "GPU-0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d" {
		t.Errorf("gpu 1 = %+v", gpus[1])
	}
}

func TestParseWithoutUUID(t *testing.T) {
	gpus := Parse("GPU 3: Tesla T4\n")
	if len(gpus) != 1 || gpus[0].Index != 3 || gpus[0].Name != "Tesla T4" || gpus[0].UUID != "" {
		t.Errorf("Parse() = %+v", gpus)
	}
}

func TestListMissingTool(t *testing.T) {
	run := func(context.Context, ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "nvidia-smi", Err: exec.ErrNotFound}
	}
	gpus, err := list(context.Background(), run)
	if err != nil || len(gpus) != 0 {
		t.Errorf("list() = %v, %v; want no gpus and no error", gpus, err)
	}
}

func TestListError(t *testing.T) {
	run := func(context.Context, ...string) ([]byte, error) {
		return nil, errors.New("NVIDIA-SMI has failed")
	}
	if _, err := list(context.Background(), run); err == nil {
		t.Error("list() swallowed an nvidia-smi failure")
	}
}
