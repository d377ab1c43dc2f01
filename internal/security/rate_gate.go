package security

import (
	"sync"
	"time"
)

const (
	DefaultWindow    = 10 * time.Second
	DefaultThreshold = 8
)

// RateGate counts messages per user in a sliding window. Timestamps older
// than the window are pruned on every access, and users with an empty window
// are dropped entirely.
type RateGate struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	window    time.Duration
	threshold int
}

func NewRateGate(window time.Duration, threshold int) *RateGate {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &RateGate{
		windows:   make(map[string][]time.Time),
		window:    window,
		threshold: threshold,
	}
}

// Allow records a message from userID at now and reports whether the user is
// still within the threshold.
func (g *RateGate) Allow(userID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	hits := append(g.prune(g.windows[userID], now), now)
	g.windows[userID] = hits
	return len(hits) <= g.threshold
}

// Count returns how many messages of userID are inside the window at now.
func (g *RateGate) Count(userID string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	hits := g.prune(g.windows[userID], now)
	if len(hits) == 0 {
		delete(g.windows, userID)
	} else {
		g.windows[userID] = hits
	}
	return len(hits)
}

// Sweep drops every window that has gone quiet.
func (g *RateGate) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for userID, hits := range g.windows {
		hits = g.prune(hits, now)
		if len(hits) == 0 {
			delete(g.windows, userID)
			removed++
			continue
		}
		g.windows[userID] = hits
	}
	return removed
}

func (g *RateGate) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}

func (g *RateGate) prune(hits []time.Time, now time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if now.Sub(t) <= g.window {
			kept = append(kept, t)
		}
	}
	return kept
}
