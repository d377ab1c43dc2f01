package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type kindMetrics struct {
	events  uint64
	errors  uint64
	panics  uint64
	latency *LatencyHistogram
}

// MetricsRegistry collects per-event-kind handler counters for the router.
type MetricsRegistry struct {
	mu       sync.RWMutex
	kinds    map[string]*kindMetrics
	ingress  *IngressRateCounter
	liveness *Liveness
	now      func() time.Time
}

func NewMetricsRegistry() *MetricsRegistry {
	return newRegistry(time.Now)
}

func newRegistry(now func() time.Time) *MetricsRegistry {
	return &MetricsRegistry{
		kinds:    make(map[string]*kindMetrics),
		ingress:  NewIngressRateCounter(now()),
		liveness: NewLiveness(),
		now:      now,
	}
}

func (mr *MetricsRegistry) kind(name string) *kindMetrics {
	mr.mu.RLock()
	km, ok := mr.kinds[name]
	mr.mu.RUnlock()
	if ok {
		return km
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()
	if km, ok = mr.kinds[name]; !ok {
		km = &kindMetrics{latency: NewLatencyHistogram()}
		mr.kinds[name] = km
	}
	return km
}

// RecordEvent counts one gateway event accepted by the router.
func (mr *MetricsRegistry) RecordEvent() {
	mr.ingress.Increment()
	mr.liveness.RecordEvent(mr.now())
}

// ObserveHandler records one handler invocation for an event kind.
func (mr *MetricsRegistry) ObserveHandler(kind string, took time.Duration, err error) {
	km := mr.kind(kind)
	atomic.AddUint64(&km.events, 1)
	if err != nil {
		atomic.AddUint64(&km.errors, 1)
	}
	km.latency.Record(took)
}

func (mr *MetricsRegistry) RecordPanic(kind string) {
	atomic.AddUint64(&mr.kind(kind).panics, 1)
}

func (mr *MetricsRegistry) Liveness() *Liveness {
	return mr.liveness
}

type KindSnapshot struct {
	Kind    string       `json:"kind"`
	Calls   uint64       `json:"calls"`
	Errors  uint64       `json:"errors"`
	Panics  uint64       `json:"panics"`
	Latency LatencyStats `json:"latency"`
}

type Snapshot struct {
	Uptime          time.Duration  `json:"uptime"`
	Connected       bool           `json:"connected"`
	Connects        uint64         `json:"connects"`
	LastEvent       time.Time      `json:"last_event"`
	Events          uint64         `json:"events"`
	EventsPerSecond float64        `json:"events_per_second"`
	Handlers        []KindSnapshot `json:"handlers"`
}

// Snapshot returns a consistent-enough copy of every counter, handlers
// sorted by kind.
func (mr *MetricsRegistry) Snapshot() Snapshot {
	now := mr.now()
	s := Snapshot{
		Uptime:          now.Sub(mr.ingress.Started()),
		Connected:       mr.liveness.Connected(),
		Connects:        mr.liveness.Connects(),
		LastEvent:       mr.liveness.LastEvent(),
		Events:          mr.ingress.Count(),
		EventsPerSecond: mr.ingress.Rate(now),
	}

	mr.mu.RLock()
	for name, km := range mr.kinds {
		s.Handlers = append(s.Handlers, KindSnapshot{
			Kind:    name,
			Calls:   atomic.LoadUint64(&km.events),
			Errors:  atomic.LoadUint64(&km.errors),
			Panics:  atomic.LoadUint64(&km.panics),
			Latency: km.latency.Stats(),
		})
	}
	mr.mu.RUnlock()

	sort.Slice(s.Handlers, func(i, j int) bool { return s.Handlers[i].Kind < s.Handlers[j].Kind })
	return s
}
