package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process Limiter for tests and single-node
// deployments. Counters for one client share a mutex, which makes the
// multi-window check-and-increment indivisible.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*clientWindows
	now     func() time.Time
}

type clientWindows struct {
	mu       sync.Mutex
	counters map[Window]*counter
}

type counter struct {
	count int
	start time.Time
}

// NewMemoryLimiter creates an empty in-memory limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*clientWindows),
		now:     time.Now,
	}
}

// CheckAndConsume implements Limiter
func (l *MemoryLimiter) CheckAndConsume(ctx context.Context, clientID string, specs []WindowSpec) (Decision, error) {
	if len(specs) == 0 {
		return Decision{Allowed: true}, nil
	}

	entry := l.entry(clientID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := l.now()

	// Roll over expired windows first. Rollover under the client lock is
	// idempotent: concurrent callers serialize here, so a window is
	// never double-reset and no admitted increment is lost.
	for _, spec := range specs {
		c, ok := entry.counters[spec.Window]
		if !ok {
			c = &counter{start: now}
			entry.counters[spec.Window] = c
		}
		if now.Sub(c.start) >= spec.Size {
			c.count = 0
			c.start = now
		}
	}

	// Admit only if every window has headroom.
	for _, spec := range specs {
		c := entry.counters[spec.Window]
		if c.count >= spec.Threshold {
			retry := c.start.Add(spec.Size).Sub(now)
			if retry < time.Second {
				retry = time.Second
			}
			return Decision{Window: spec.Window, RetryAfter: retry}, nil
		}
	}
	for _, spec := range specs {
		entry.counters[spec.Window].count++
	}
	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) entry(clientID string) *clientWindows {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[clientID]
	if !ok {
		entry = &clientWindows{counters: make(map[Window]*counter)}
		l.entries[clientID] = entry
	}
	return entry
}

// Cleanup removes clients whose windows have all lapsed. Call
// periodically to bound memory on long-running processes.
func (l *MemoryLimiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, entry := range l.entries {
		entry.mu.Lock()
		stale := true
		for _, c := range entry.counters {
			if now.Sub(c.start) < maxIdle {
				stale = false
				break
			}
		}
		entry.mu.Unlock()
		if stale {
			delete(l.entries, id)
		}
	}
}
