package bus

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/errors"
)

var ErrBusClosed = errors.New("bus closed")

type memEntry struct {
	seq     int64
	payload []byte
}

type memPoint struct {
	payload  []byte
	expireAt time.Time
}

// Memory is an in-process Bus backend. It mirrors the Redis backend's
// semantics closely enough that every engine runs unchanged against it,
// which is what the tests use.
type Memory struct {
	mu      sync.Mutex
	seq     int64
	streams map[Topic][]memEntry
	points  map[string]memPoint
	rings   map[string][][]byte
	notify  chan struct{}
	closed  bool
}

// NewMemory allocates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{
		streams: make(map[Topic][]memEntry),
		points:  make(map[string]memPoint),
		rings:   make(map[string][][]byte),
		notify:  make(chan struct{}),
	}
}

func (m *Memory) Append(_ context.Context, topic Topic, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBusClosed
	}
	m.seq++
	buf := make([]byte, len(payload))
	copy(buf, payload)
	entries := append(m.streams[topic], memEntry{seq: m.seq, payload: buf})
	if len(entries) > StreamMaxLen {
		entries = entries[len(entries)-StreamMaxLen:]
	}
	m.streams[topic] = entries
	close(m.notify)
	m.notify = make(chan struct{})
	return nil
}

func (m *Memory) Read(ctx context.Context, cursors map[Topic]string, count int, block time.Duration) ([]Entry, error) {
	if count <= 0 {
		count = 100
	}
	deadline := time.Now().Add(block)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrBusClosed
		}
		out := m.collectLocked(cursors, count)
		notify := m.notify
		m.mu.Unlock()

		if len(out) > 0 {
			return out, nil
		}
		if block <= 0 {
			return nil, nil
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(remain)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-notify:
			timer.Stop()
		}
	}
}

// collectLocked gathers entries past each cursor, resolving "$" to the
// current tail, and advances the cursors for everything returned.
func (m *Memory) collectLocked(cursors map[Topic]string, count int) []Entry {
	var out []Entry
	for topic, cursor := range cursors {
		entries := m.streams[topic]
		last := m.resolveCursor(cursor, entries)
		if cursor == CursorLive {
			cursors[topic] = strconv.FormatInt(last, 10)
		}
		for _, e := range entries {
			if e.seq <= last {
				continue
			}
			out = append(out, Entry{Topic: topic, ID: strconv.FormatInt(e.seq, 10), Payload: e.payload})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a < b
	})
	if len(out) > count {
		out = out[:count]
	}
	for _, e := range out {
		cursors[e.Topic] = e.ID
	}
	return out
}

func (m *Memory) resolveCursor(cursor string, entries []memEntry) int64 {
	if cursor == CursorLive {
		if len(entries) == 0 {
			return 0
		}
		return entries[len(entries)-1].seq
	}
	v, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBusClosed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	point := memPoint{payload: buf}
	if ttl > 0 {
		point.expireAt = time.Now().Add(ttl)
	}
	m.points[key] = point
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	point, ok := m.points[key]
	if !ok {
		return nil, false, nil
	}
	if !point.expireAt.IsZero() && time.Now().After(point.expireAt) {
		delete(m.points, key)
		return nil, false, nil
	}
	return point.payload, true, nil
}

func (m *Memory) Push(_ context.Context, key string, payload []byte, maxLen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBusClosed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	ring := append(m.rings[key], buf)
	if maxLen > 0 && len(ring) > maxLen {
		ring = ring[len(ring)-maxLen:]
	}
	m.rings[key] = ring
	return nil
}

func (m *Memory) Range(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ring := m.rings[key]
	n := int64(len(ring))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, ring[i])
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.notify)
		m.notify = make(chan struct{})
	}
	return nil
}
