package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const gpuQueryTimeout = 5 * time.Second

// defaultGPUStats is what every caller sees when GPU telemetry is
// unavailable for any reason.
func defaultGPUStats() GPUStats {
	return GPUStats{Percent: 0, Name: "N/A", Memory: GPUMemory{}}
}

// GPUProbe queries nvidia-smi for global and per-process GPU telemetry.
// The tool being absent from PATH is the expected case on most machines;
// every failure mode degrades to zero defaults and never propagates.
type GPUProbe struct {
	BinaryPath string

	// overridable for tests
	lookPath func(string) (string, error)
	run      func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

func newGPUProbe(binaryPath string) *GPUProbe {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = "nvidia-smi"
	}
	return &GPUProbe{
		BinaryPath: binaryPath,
		lookPath:   exec.LookPath,
		run:        runTool,
	}
}

// runTool executes an external query tool and captures its stdout. The
// process is kept off-screen on platforms where spawning one would
// otherwise flash a console window.
func runTool(ctx context.Context, bin string, args ...string) ([]byte, error) {
	qctx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	defer cancel()

	cmd := exec.CommandContext(qctx, bin, args...)
	suppressWindow(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (p *GPUProbe) available() bool {
	_, err := p.lookPath(p.BinaryPath)
	return err == nil
}

// Global returns utilization, name and memory for the first GPU, or the
// zero default when the tool is missing, fails, or prints garbage.
func (p *GPUProbe) Global(ctx context.Context) GPUStats {
	if !p.available() {
		return defaultGPUStats()
	}

	nameOut, err := p.run(ctx, p.BinaryPath, "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return defaultGPUStats()
	}
	statsOut, err := p.run(ctx, p.BinaryPath,
		"--query-gpu=utilization.gpu,memory.total,memory.used",
		"--format=csv,noheader,nounits")
	if err != nil {
		return defaultGPUStats()
	}

	stats, err := parseGPUStats(nameOut, statsOut)
	if err != nil {
		return defaultGPUStats()
	}
	return stats
}

// ProcessMap returns GPU memory in bytes per pid, rebuilt on every call.
// Absent tool or bad output yields an empty map. Rows that fail to parse
// are skipped individually; nvidia-smi is known to print noise lines when
// no compute apps are running.
func (p *GPUProbe) ProcessMap(ctx context.Context) map[int32]uint64 {
	if !p.available() {
		return map[int32]uint64{}
	}

	out, err := p.run(ctx, p.BinaryPath,
		"--query-compute-apps=pid,used_memory",
		"--format=csv,noheader,nounits")
	if err != nil {
		return map[int32]uint64{}
	}
	return parseGPUProcessMap(out)
}

// parseGPUStats parses the two query outputs into GPUStats. Only the first
// data row of each is consumed: multi-GPU hosts report their primary GPU.
func parseGPUStats(nameOut, statsOut []byte) (GPUStats, error) {
	nameRows := csvRows(nameOut)
	if len(nameRows) == 0 {
		return GPUStats{}, fmt.Errorf("gpu name query: empty output")
	}
	name := strings.Join(nameRows[0], ",")

	statRows := csvRows(statsOut)
	if len(statRows) == 0 {
		return GPUStats{}, fmt.Errorf("gpu stats query: empty output")
	}
	cols := statRows[0]
	if len(cols) != 3 {
		return GPUStats{}, fmt.Errorf("gpu stats query: want 3 columns, got %d", len(cols))
	}

	util, err := strconv.ParseFloat(cols[0], 64)
	if err != nil {
		return GPUStats{}, fmt.Errorf("gpu utilization %q: %w", cols[0], err)
	}
	totalMiB, err := strconv.ParseFloat(cols[1], 64)
	if err != nil {
		return GPUStats{}, fmt.Errorf("gpu memory.total %q: %w", cols[1], err)
	}
	usedMiB, err := strconv.ParseFloat(cols[2], 64)
	if err != nil {
		return GPUStats{}, fmt.Errorf("gpu memory.used %q: %w", cols[2], err)
	}

	return GPUStats{
		Percent: util,
		Name:    name,
		Memory: GPUMemory{
			Total: mibToBytes(totalMiB),
			Used:  mibToBytes(usedMiB),
		},
	}, nil
}

func parseGPUProcessMap(out []byte) map[int32]uint64 {
	m := map[int32]uint64{}
	for _, cols := range csvRows(out) {
		if len(cols) != 2 {
			continue
		}
		pid, err := strconv.ParseInt(cols[0], 10, 32)
		if err != nil {
			continue
		}
		memMiB, err := strconv.ParseFloat(cols[1], 64)
		if err != nil {
			continue
		}
		m[int32(pid)] = mibToBytes(memMiB)
	}
	return m
}

func mibToBytes(mib float64) uint64 {
	if mib < 0 {
		return 0
	}
	return uint64(mib * 1024 * 1024)
}

// csvRows splits comma-separated tool output into trimmed columns,
// dropping blank lines.
func csvRows(b []byte) [][]string {
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var rows [][]string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		rows = append(rows, cols)
	}
	return rows
}
