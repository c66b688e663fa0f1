package engine

import (
	"runtime"
	"time"
)

// memoryPauseFraction is how close to the memory ceiling the guard
// lets a run get before requesting a pause.
const memoryPauseFraction = 0.85

// resourceGuard measures elapsed wall time and heap usage against the
// configured ceilings. The engine self-pauses before the host would
// kill it; this is the primary failure-avoidance mechanism, not a
// backstop.
type resourceGuard struct {
	startedAt  time.Time
	maxElapsed time.Duration
	memLimit   uint64
	memPeak    uint64
}

func newResourceGuard(maxElapsed time.Duration, memoryLimitMB int) *resourceGuard {
	return &resourceGuard{
		startedAt:  time.Now(),
		maxElapsed: maxElapsed,
		memLimit:   uint64(memoryLimitMB) * 1024 * 1024,
	}
}

// shouldPause reports whether the run should pause now and why.
func (g *resourceGuard) shouldPause() (bool, string) {
	if time.Since(g.startedAt) >= g.maxElapsed {
		return true, "elapsed"
	}
	used := g.sample()
	if float64(used) >= float64(g.memLimit)*memoryPauseFraction {
		return true, "memory"
	}
	return false, ""
}

// sample reads current heap usage and tracks the peak.
func (g *resourceGuard) sample() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc > g.memPeak {
		g.memPeak = stats.HeapAlloc
	}
	return stats.HeapAlloc
}

func (g *resourceGuard) elapsedSeconds() float64 {
	return time.Since(g.startedAt).Seconds()
}
