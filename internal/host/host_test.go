package host

import (
	"context"
	"testing"
)

func TestDetect(t *testing.T) {
	info := Detect(context.Background())
	if info.LogicalCores < 1 {
		t.Errorf("LogicalCores = %d", info.LogicalCores)
	}
	if info.VmafThreads() != info.LogicalCores {
		t.Errorf("VmafThreads() = %d, want %d", info.VmafThreads(), info.LogicalCores)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{CPUModel: "AMD Ryzen 9 7950X", LogicalCores: 32, MemoryTotal: 64 << 30}, "AMD Ryzen 9 7950X, 32 threads, 64.0 GiB RAM"},
		{Info{LogicalCores: 4}, "unknown CPU, 4 threads"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if (Info{}).VmafThreads() != 1 {
		t.Error("VmafThreads() of an empty Info should be 1")
	}
}
