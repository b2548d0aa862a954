package main

// SystemStats is the whole-machine snapshot returned to the dashboard.
// Byte quantities are raw bytes; percents are 0..100.
type SystemStats struct {
	CPUPercent float64     `json:"cpu"`
	Memory     MemoryStats `json:"memory"`
	Disk       DiskStats   `json:"disk"`
	GPU        GPUStats    `json:"gpu"`
	UptimeSecs uint64      `json:"uptime_secs"`
	LoadAvg    float64     `json:"load_avg"`
}

type MemoryStats struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Percent   float64 `json:"percent"`
}

type DiskStats struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// GPUStats defaults to {0, "N/A", {0, 0}} when no GPU telemetry is
// available; that is the normal case on machines without the hardware.
type GPUStats struct {
	Percent float64   `json:"percent"`
	Name    string    `json:"name"`
	Memory  GPUMemory `json:"memory"`
}

type GPUMemory struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
}

// ProcessSample is one row of the ranked process table, built fresh on
// every sampling pass.
type ProcessSample struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"` // normalized by logical core count
	MemPercent float64 `json:"memory_percent"`
	DiskIORate float64 `json:"disk_io"`    // bytes/second, 0 on first sighting
	GPUMemory  uint64  `json:"gpu_memory"` // bytes, 0 if the pid holds no GPU memory
}
