package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// Pseudo-processes the OS lists as placeholders for idle CPU time. They
// would otherwise dominate any CPU-sorted view.
var idleProcessNames = map[string]bool{
	"System Idle Process": true,
	"Idle":                true,
}

// Skip reasons for processes dropped during a pass.
const (
	skipExited     = "exited"
	skipDenied     = "denied"
	skipUnreadable = "unreadable"
)

// procRecord is one process as read from the OS, before any derivation.
// cpuPercent is raw (can exceed 100 on multicore). A non-empty skip marks
// the record unusable; it is counted and dropped.
type procRecord struct {
	pid        int32
	name       string
	cpuPercent float64
	memPercent float64
	ioBytes    uint64 // read_bytes + write_bytes, cumulative
	hasIO      bool
	skip       string
}

// SampleResult is the outcome of one sampling pass. Skipped counts the
// processes dropped mid-enumeration by reason, so lifecycle races are
// observable even though they never fail the pass.
type SampleResult struct {
	Samples []ProcessSample
	Skipped map[string]int
}

// Sampler produces the ranked process table. It owns the RateCache and the
// GPU probe; every call is a full independent pass over the process table.
// Passes are serialized: two interleaved passes would observe the cache at
// mixed timestamps and corrupt the derived rates.
type Sampler struct {
	mu    sync.Mutex
	cache *RateCache
	gpu   *GPUProbe
	topN  int

	// overridable for tests
	listProcs func() ([]procRecord, error)
	cpuCount  func() int
	now       func() time.Time
}

func newSampler(cache *RateCache, gpu *GPUProbe, topN int) *Sampler {
	if topN <= 0 {
		topN = 50
	}
	return &Sampler{
		cache:     cache,
		gpu:       gpu,
		topN:      topN,
		listProcs: listLiveProcesses,
		cpuCount:  logicalCPUCount,
		now:       time.Now,
	}
}

// Sample enumerates live processes, derives per-process IO rates against
// the cache, merges GPU memory by pid, and returns at most topN samples
// sorted descending by sortBy (cpu, memory, disk or gpu; anything else
// falls back to cpu). Ties sort by ascending pid.
func (s *Sampler) Sample(ctx context.Context, sortBy string) (SampleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.listProcs()
	if err != nil {
		return SampleResult{}, fmt.Errorf("enumerating processes: %w", err)
	}

	cores := s.cpuCount()
	if cores < 1 {
		cores = 1
	}
	now := s.now()
	gpuMem := s.gpu.ProcessMap(ctx)

	result := SampleResult{Skipped: map[string]int{}}
	live := make(map[int32]struct{}, len(records))
	for _, rec := range records {
		if rec.skip != "" {
			result.Skipped[rec.skip]++
			continue
		}
		if idleProcessNames[rec.name] {
			continue
		}

		var ioRate float64
		if rec.hasIO {
			ioRate = s.cache.Observe(rec.pid, rec.ioBytes, now)
		}

		live[rec.pid] = struct{}{}
		result.Samples = append(result.Samples, ProcessSample{
			PID:        rec.pid,
			Name:       rec.name,
			CPUPercent: rec.cpuPercent / float64(cores),
			MemPercent: rec.memPercent,
			DiskIORate: ioRate,
			GPUMemory:  gpuMem[rec.pid],
		})
	}

	s.cache.Reconcile(live)

	sortSamples(result.Samples, sortBy)
	if len(result.Samples) > s.topN {
		result.Samples = result.Samples[:s.topN]
	}
	return result, nil
}

// sortSamples orders descending by the chosen key, ascending pid on ties.
func sortSamples(samples []ProcessSample, sortBy string) {
	key := sortKeyFunc(sortBy)
	sort.Slice(samples, func(i, j int) bool {
		ki, kj := key(samples[i]), key(samples[j])
		if ki != kj {
			return ki > kj
		}
		return samples[i].PID < samples[j].PID
	})
}

func sortKeyFunc(sortBy string) func(ProcessSample) float64 {
	switch sortBy {
	case "memory":
		return func(p ProcessSample) float64 { return p.MemPercent }
	case "disk":
		return func(p ProcessSample) float64 { return p.DiskIORate }
	case "gpu":
		return func(p ProcessSample) float64 { return float64(p.GPUMemory) }
	default: // "cpu" and unknown keys
		return func(p ProcessSample) float64 { return p.CPUPercent }
	}
}

// listLiveProcesses reads the OS process table. A process vanishing or
// denying access mid-read yields a skip record rather than an error; only
// the table itself being unreadable fails the pass.
func listLiveProcesses() ([]procRecord, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	records := make([]procRecord, 0, len(procs))
	for _, p := range procs {
		records = append(records, readProcess(p))
	}
	return records, nil
}

func readProcess(p *process.Process) procRecord {
	rec := procRecord{pid: p.Pid}

	name, err := p.Name()
	if err != nil {
		rec.skip = classifyProcError(err)
		return rec
	}
	rec.name = name

	cpuPct, err := p.CPUPercent()
	if err != nil {
		rec.skip = classifyProcError(err)
		return rec
	}
	rec.cpuPercent = cpuPct

	memPct, err := p.MemoryPercent()
	if err != nil {
		rec.skip = classifyProcError(err)
		return rec
	}
	rec.memPercent = float64(memPct)

	// IO counters are unreadable for many system processes without
	// privileges; that only disables the rate for this pid.
	if io, err := p.IOCounters(); err == nil && io != nil {
		rec.ioBytes = io.ReadBytes + io.WriteBytes
		rec.hasIO = true
	}
	return rec
}

func classifyProcError(err error) string {
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning):
		return skipExited
	case errors.Is(err, os.ErrPermission):
		return skipDenied
	default:
		return skipUnreadable
	}
}

func logicalCPUCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
