package recorder

import (
	"context"
	"time"

	"main/internal/bus"

	"github.com/yanun0323/logs"
)

// Tap consumes bus topics and captures every entry to a writer. A full
// writer queue drops the record rather than stalling consumption.
type Tap struct {
	bus    bus.Bus
	writer *Writer
	topics []bus.Topic
}

// NewTap wires a capture tap over the given topics.
func NewTap(b bus.Bus, writer *Writer, topics []bus.Topic) *Tap {
	return &Tap{bus: b, writer: writer, topics: topics}
}

// Run consumes until the context is done.
func (t *Tap) Run(ctx context.Context) {
	cursors := make(map[bus.Topic]string, len(t.topics))
	for _, topic := range t.topics {
		cursors[topic] = bus.CursorLive
	}
	for {
		entries, err := t.bus.Read(ctx, cursors, 200, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("tap read, err: %+v", err)
			time.Sleep(time.Second)
			continue
		}
		now := time.Now().UnixMilli()
		for _, entry := range entries {
			rec := Record{Topic: string(entry.Topic), Ts: now, Payload: entry.Payload}
			if err := t.writer.TryAppend(rec); err != nil {
				if err == ErrQueueFull {
					continue
				}
				logs.Errorf("tap append, err: %+v", err)
				return
			}
		}
	}
}
