package metrics

import (
	"sync/atomic"
	"time"
)

// IngressRateCounter counts gateway events accepted by the router.
type IngressRateCounter struct {
	eventsProcessed uint64
	startTime       int64
}

func NewIngressRateCounter(start time.Time) *IngressRateCounter {
	return &IngressRateCounter{startTime: start.UnixNano()}
}

func (irc *IngressRateCounter) Increment() {
	atomic.AddUint64(&irc.eventsProcessed, 1)
}

// Rate returns events per second between the counter start and now.
func (irc *IngressRateCounter) Rate(now time.Time) float64 {
	events := atomic.LoadUint64(&irc.eventsProcessed)
	elapsed := now.UnixNano() - atomic.LoadInt64(&irc.startTime)
	if elapsed <= 0 {
		return 0
	}
	return float64(events) / (float64(elapsed) / 1e9)
}

func (irc *IngressRateCounter) Count() uint64 {
	return atomic.LoadUint64(&irc.eventsProcessed)
}

func (irc *IngressRateCounter) Started() time.Time {
	return time.Unix(0, atomic.LoadInt64(&irc.startTime))
}
