// Package host describes the machine trials run on.
package host

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Info is what the report header and the libvmaf thread count need.
type Info struct {
	CPUModel     string
	LogicalCores int
	MemoryTotal  uint64 // bytes
}

// Detect reads host facts. Missing facts are left zero; only the core
// count falls back, to runtime.NumCPU.
func Detect(ctx context.Context) Info {
	info := Info{}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.LogicalCores = n
	} else {
		info.LogicalCores = runtime.NumCPU()
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	}

	return info
}

// VmafThreads is the libvmaf thread count: one per logical core.
func (i Info) VmafThreads() int {
	if i.LogicalCores < 1 {
		return 1
	}
	return i.LogicalCores
}

func (i Info) String() string {
	model := i.CPUModel
	if model == "" {
		model = "unknown CPU"
	}
	s := fmt.Sprintf("%s, %d threads", model, i.LogicalCores)
	if i.MemoryTotal > 0 {
		s += fmt.Sprintf(", %.1f GiB RAM", float64(i.MemoryTotal)/(1<<30))
	}
	return s
}
