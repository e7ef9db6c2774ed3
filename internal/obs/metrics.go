package obs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/bus"

	"github.com/yanun0323/logs"
)

// Metrics collects lightweight per-topic counters and latency stats.
// All methods are nil-safe so callers can run without instrumentation.
type Metrics struct {
	mu        sync.Mutex
	consumed  map[bus.Topic]*uint64
	published map[bus.Topic]*uint64
	dropped   map[bus.Topic]*uint64

	publishLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Consumed       map[bus.Topic]uint64
	Published      map[bus.Topic]uint64
	Dropped        map[bus.Topic]uint64
	PublishLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{
		consumed:  make(map[bus.Topic]*uint64),
		published: make(map[bus.Topic]*uint64),
		dropped:   make(map[bus.Topic]*uint64),
	}
}

func (m *Metrics) counter(set map[bus.Topic]*uint64, topic bus.Topic) *uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := set[topic]
	if !ok {
		c = new(uint64)
		set[topic] = c
	}
	return c
}

// IncConsumed records one consumed topic entry.
func (m *Metrics) IncConsumed(topic bus.Topic) {
	if m == nil {
		return
	}
	atomic.AddUint64(m.counter(m.consumed, topic), 1)
}

// IncPublished records one successful publish.
func (m *Metrics) IncPublished(topic bus.Topic) {
	if m == nil {
		return
	}
	atomic.AddUint64(m.counter(m.published, topic), 1)
}

// IncDropped records one malformed or rejected payload.
func (m *Metrics) IncDropped(topic bus.Topic) {
	if m == nil {
		return
	}
	atomic.AddUint64(m.counter(m.dropped, topic), 1)
}

// ObservePublish measures one bus publish round trip.
func (m *Metrics) ObservePublish(d time.Duration) {
	if m == nil {
		return
	}
	m.publishLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copySet := func(set map[bus.Topic]*uint64) map[bus.Topic]uint64 {
		out := make(map[bus.Topic]uint64, len(set))
		for topic, c := range set {
			if v := atomic.LoadUint64(c); v > 0 {
				out[topic] = v
			}
		}
		return out
	}
	return Snapshot{
		Consumed:       copySet(m.consumed),
		Published:      copySet(m.published),
		Dropped:        copySet(m.dropped),
		PublishLatency: m.publishLatency.Snapshot(),
	}
}

// LogLoop dumps a metrics snapshot on a fixed interval until the context is
// done. Quiet snapshots are skipped.
func LogLoop(ctx context.Context, m *Metrics, interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.Snapshot()
			if len(snap.Consumed) == 0 && len(snap.Published) == 0 && len(snap.Dropped) == 0 {
				continue
			}
			logs.Infof("metrics consumed=%v published=%v dropped=%v publish_latency{count=%d min=%s max=%s avg=%s}",
				snap.Consumed, snap.Published, snap.Dropped,
				snap.PublishLatency.Count, snap.PublishLatency.Min, snap.PublishLatency.Max, snap.PublishLatency.Avg)
		}
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
