// Package memory implements cooperative heap backpressure between batches.
package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Sampler reports current heap usage in bytes.
type Sampler func() uint64

// Releaser asks the runtime to return memory.
type Releaser func()

// HeapAlloc samples bytes of allocated heap objects.
func HeapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// FreeOSMemory forces a GC and returns as much memory to the OS as possible.
func FreeOSMemory() { debug.FreeOSMemory() }

// Guard checks heap usage against a ceiling. A zero ceiling disables it.
type Guard struct {
	limit   uint64
	sample  Sampler
	release Releaser

	mu       sync.Mutex
	releases int
	peak     uint64
}

// NewGuard creates a guard with a ceiling in megabytes.
func NewGuard(limitMB int) *Guard {
	var limit uint64
	if limitMB > 0 {
		limit = uint64(limitMB) << 20
	}
	return &Guard{limit: limit, sample: HeapAlloc, release: FreeOSMemory}
}

// WithSampler replaces the heap sampler and releaser (tests).
func (g *Guard) WithSampler(s Sampler, r Releaser) *Guard {
	if s != nil {
		g.sample = s
	}
	if r != nil {
		g.release = r
	}
	return g
}

// Check samples the heap and, when it is above the ceiling, forces a release.
// Returns true when a release happened. Never fails: exceeding the ceiling is backpressure only.
func (g *Guard) Check() (released bool, usedBytes uint64) {
	if g == nil || g.limit == 0 {
		return false, 0
	}
	used := g.sample()

	g.mu.Lock()
	defer g.mu.Unlock()
	if used > g.peak {
		g.peak = used
	}
	if used <= g.limit {
		return false, used
	}
	g.release()
	g.releases++
	return true, used
}

// Releases returns how many times the guard forced a release.
func (g *Guard) Releases() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.releases
}

// Peak returns the highest sampled heap usage in bytes.
func (g *Guard) Peak() uint64 {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// LimitBytes returns the ceiling, 0 when disabled.
func (g *Guard) LimitBytes() uint64 {
	if g == nil {
		return 0
	}
	return g.limit
}
