package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSystemStats(t *testing.T) {
	stats, err := collectSystemStats(context.Background(), absentGPUProbe(), 10*time.Millisecond)
	require.NoError(t, err)

	// Without the GPU tool the gpu block is the documented default.
	assert.Equal(t, defaultGPUStats(), stats.GPU)

	assert.NotZero(t, stats.Memory.Total)
	assert.LessOrEqual(t, stats.Memory.Used, stats.Memory.Total)
	assert.NotZero(t, stats.Disk.Total)
	assert.GreaterOrEqual(t, stats.CPUPercent, 0.0)
	assert.LessOrEqual(t, stats.CPUPercent, 100.0)
}
