package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// collectSystemStats aggregates the whole-machine snapshot. The CPU reading
// deliberately blocks for cpuSample so the first call returns a real value
// instead of zero; memory and disk failures fail the whole call, GPU
// telemetry degrades to defaults inside the probe.
func collectSystemStats(ctx context.Context, gpu *GPUProbe, cpuSample time.Duration) (SystemStats, error) {
	cpuPcts, err := cpu.Percent(cpuSample, false)
	if err != nil {
		return SystemStats{}, fmt.Errorf("reading cpu: %w", err)
	}
	var cpuPct float64
	if len(cpuPcts) > 0 {
		cpuPct = cpuPcts[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemStats{}, fmt.Errorf("reading memory: %w", err)
	}

	du, err := disk.Usage("/")
	if err != nil {
		return SystemStats{}, fmt.Errorf("reading disk: %w", err)
	}

	stats := SystemStats{
		CPUPercent: cpuPct,
		Memory: MemoryStats{
			Total:     vm.Total,
			Available: vm.Available,
			Used:      vm.Used,
			Percent:   vm.UsedPercent,
		},
		Disk: DiskStats{
			Total:   du.Total,
			Used:    du.Used,
			Free:    du.Free,
			Percent: du.UsedPercent,
		},
		GPU: gpu.Global(ctx),
	}

	// Best-effort extras; zero values are fine for the dashboard.
	if up, err := host.Uptime(); err == nil {
		stats.UptimeSecs = up
	}
	if avg, err := load.Avg(); err == nil {
		stats.LoadAvg = avg.Load1
	}

	return stats, nil
}
