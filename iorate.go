package main

import (
	"sync"
	"time"
)

type ioEntry struct {
	bytes uint64
	at    time.Time
}

// RateCache turns per-process cumulative IO counters into byte rates.
// It keeps the last observation per pid across sampling passes and is the
// only state the agent carries between requests. The mutex makes each
// operation atomic; whole passes are serialized by the Sampler.
type RateCache struct {
	mu      sync.Mutex
	entries map[int32]ioEntry

	// ClampNegative forces the rate to 0 when a counter went backwards
	// (counter wrap or per-process reset). Off by default: a negative
	// rate is passed through so the anomaly stays visible.
	ClampNegative bool
}

func newRateCache() *RateCache {
	return &RateCache{entries: make(map[int32]ioEntry)}
}

// Observe records the current cumulative byte count for pid and returns the
// instantaneous rate in bytes/second since the previous observation. The
// first observation of a pid has no baseline and returns 0. A zero or
// negative time delta also returns 0.
func (c *RateCache) Observe(pid int32, bytes uint64, now time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, seen := c.entries[pid]
	c.entries[pid] = ioEntry{bytes: bytes, at: now}
	if !seen {
		return 0
	}

	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0
	}

	rate := (float64(bytes) - float64(prev.bytes)) / dt
	if rate < 0 && c.ClampNegative {
		return 0
	}
	return rate
}

// Reconcile drops entries for pids not observed in the pass that just
// completed. This is the only eviction policy; without it dead pids would
// accumulate forever.
func (c *RateCache) Reconcile(live map[int32]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pid := range c.entries {
		if _, ok := live[pid]; !ok {
			delete(c.entries, pid)
		}
	}
}

// Len reports the number of tracked pids.
func (c *RateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
