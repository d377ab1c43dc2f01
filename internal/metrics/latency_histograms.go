package metrics

import (
	"sync/atomic"
	"time"
)

// Bucket upper bounds of the handler latency histogram. The last bucket
// collects everything slower.
var LatencyBuckets = []time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
	10 * time.Second,
}

type LatencyHistogram struct {
	buckets [8]uint64
	min     uint64
	max     uint64
	count   uint64
	sum     uint64
}

func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{}
}

func (lh *LatencyHistogram) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	ns := uint64(d)
	atomic.AddUint64(&lh.count, 1)
	atomic.AddUint64(&lh.sum, ns)

	for {
		oldMin := atomic.LoadUint64(&lh.min)
		if oldMin != 0 && ns >= oldMin {
			break
		}
		if atomic.CompareAndSwapUint64(&lh.min, oldMin, ns) {
			break
		}
	}

	for {
		oldMax := atomic.LoadUint64(&lh.max)
		if ns <= oldMax {
			break
		}
		if atomic.CompareAndSwapUint64(&lh.max, oldMax, ns) {
			break
		}
	}

	atomic.AddUint64(&lh.buckets[bucketIndex(d)], 1)
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBuckets {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBuckets)
}

func (lh *LatencyHistogram) Stats() LatencyStats {
	count := atomic.LoadUint64(&lh.count)
	sum := atomic.LoadUint64(&lh.sum)

	var avg uint64
	if count > 0 {
		avg = sum / count
	}

	stats := LatencyStats{
		Min:   time.Duration(atomic.LoadUint64(&lh.min)),
		Max:   time.Duration(atomic.LoadUint64(&lh.max)),
		Avg:   time.Duration(avg),
		Count: count,
	}
	for i := range lh.buckets {
		stats.Buckets[i] = atomic.LoadUint64(&lh.buckets[i])
	}
	return stats
}

type LatencyStats struct {
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Avg     time.Duration `json:"avg"`
	Count   uint64        `json:"count"`
	Buckets [8]uint64     `json:"buckets"`
}
