package watchdog

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-amadeus/internal/logging"
)

const DefaultCheckInterval = 30 * time.Second

// Watchdog polls registered components for their last sign of life and logs
// when one goes quiet for longer than its threshold, and again when it
// recovers.
type Watchdog struct {
	mu            sync.Mutex
	components    map[string]*ComponentHealth
	checkInterval time.Duration
}

type ComponentHealth struct {
	Name      string
	Threshold time.Duration
	IsHealthy bool
	lastSeen  func() time.Time
}

func NewWatchdog(checkInterval time.Duration) *Watchdog {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &Watchdog{
		components:    make(map[string]*ComponentHealth),
		checkInterval: checkInterval,
	}
}

// RegisterComponent watches lastSeen. A zero time means the component has not
// reported yet and is not judged.
func (w *Watchdog) RegisterComponent(name string, threshold time.Duration, lastSeen func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.components[name] = &ComponentHealth{
		Name:      name,
		Threshold: threshold,
		IsHealthy: true,
		lastSeen:  lastSeen,
	}
}

// Run checks every component until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Check(now)
		}
	}
}

// Check evaluates every component at now and returns the unhealthy ones,
// sorted.
func (w *Watchdog) Check(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var unhealthy []string
	for name, comp := range w.components {
		last := comp.lastSeen()
		if last.IsZero() {
			continue
		}

		elapsed := now.Sub(last)
		healthy := elapsed <= comp.Threshold
		switch {
		case !healthy && comp.IsHealthy:
			logging.Error("Watchdog: %s unhealthy (silent for %v)", name, elapsed.Round(time.Second))
		case healthy && !comp.IsHealthy:
			logging.Info("Watchdog: %s recovered", name)
		}
		comp.IsHealthy = healthy
		if !healthy {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return unhealthy
}

func (w *Watchdog) IsHealthy(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if comp, exists := w.components[name]; exists {
		return comp.IsHealthy
	}
	return false
}

func (w *Watchdog) Status() map[string]bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = comp.IsHealthy
	}
	return status
}
