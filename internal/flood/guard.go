// Package flood bounds how often the same upstream URL is resolved.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window for the per-key limit
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle keys are swept
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a key may stay unused before it is dropped
	idleTimeout = 10 * time.Minute
)

// Guard is a per-key sliding-window limiter. Keys are normalized target URLs.
type Guard struct {
	limitPerMinute int
	entries        map[string]*keyEntry
	now            func() time.Time
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type keyEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// New starts a Guard allowing limitPerMinute hits per key. A non-positive limit blocks everything.
func New(limitPerMinute int, opts ...Option) *Guard {
	g := &Guard{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*keyEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	go g.cleanup()

	return g
}

// Stop ends the background sweep. It is safe to call more than once.
func (g *Guard) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCleanup)
	})
}

// Allow records a hit for key and reports whether it is within the limit.
// Rejected hits are not recorded, so a blocked key frees up as the window slides.
func (g *Guard) Allow(key string) bool {
	now := g.now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	entry, exists := g.entries[key]
	if !exists {
		entry = &keyEntry{
			timestamps: make([]time.Time, 0, max(g.limitPerMinute, 0)+1),
		}
		g.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= g.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (g *Guard) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep()
		case <-g.stopCleanup:
			return
		}
	}
}

func (g *Guard) sweep() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	cutoff := g.now().Add(-idleTimeout)
	for key, entry := range g.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(g.entries, key)
		}
	}
}

// Stats returns a snapshot for the readiness endpoint.
func (g *Guard) Stats() Stats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return Stats{
		TrackedKeys:    len(g.entries),
		LimitPerMinute: g.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

type Stats struct {
	TrackedKeys    int `json:"tracked_keys"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
