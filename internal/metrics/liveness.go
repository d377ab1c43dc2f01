package metrics

import (
	"sync/atomic"
	"time"
)

// Liveness tracks the gateway connection as reported by session
// connect/disconnect events and the time of the last dispatched event.
type Liveness struct {
	connected     uint32
	reconnects    uint64
	lastEventTime int64
}

func NewLiveness() *Liveness {
	return &Liveness{}
}

func (l *Liveness) SetConnected(connected bool) {
	val := uint32(0)
	if connected {
		val = 1
		atomic.AddUint64(&l.reconnects, 1)
	}
	atomic.StoreUint32(&l.connected, val)
}

func (l *Liveness) Connected() bool {
	return atomic.LoadUint32(&l.connected) == 1
}

// Connects counts how many times the session has (re)connected.
func (l *Liveness) Connects() uint64 {
	return atomic.LoadUint64(&l.reconnects)
}

func (l *Liveness) RecordEvent(at time.Time) {
	atomic.StoreInt64(&l.lastEventTime, at.UnixNano())
}

func (l *Liveness) LastEvent() time.Time {
	ns := atomic.LoadInt64(&l.lastEventTime)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
