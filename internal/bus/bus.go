package bus

import (
	"context"
	"strings"
	"time"

	"github.com/yanun0323/errors"
)

// CursorLive starts a consumer at the tail of a topic, skipping history.
const CursorLive = "$"

// Entry is one consumed topic record.
type Entry struct {
	Topic   Topic
	ID      string
	Payload []byte
}

// Bus is the integration contract between every component: append-only
// topics with independent consumer cursors, last-value point keys with TTL,
// and bounded ring lists. Payloads are flat JSON documents.
type Bus interface {
	// Append adds a payload to a topic, trimming it to StreamMaxLen.
	Append(ctx context.Context, topic Topic, payload []byte) error

	// Read blocks up to block for new entries past the given cursors and
	// advances the cursors in place. A nil result with no error means the
	// block window elapsed without data.
	Read(ctx context.Context, cursors map[Topic]string, count int, block time.Duration) ([]Entry, error)

	// Set overwrites a point key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Get reads a point key; ok is false when absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Push appends to a ring list, trimming it to the newest maxLen entries.
	Push(ctx context.Context, key string, payload []byte, maxLen int) error

	// Range reads ring list entries by index, with Redis LRANGE semantics:
	// negative indexes count from the tail (-1 is the newest entry).
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	Close() error
}

// Connect builds a Bus from a connection string. "memory" (or empty) yields
// the in-process backend; anything else is treated as a Redis URL.
func Connect(ctx context.Context, conn string) (Bus, error) {
	switch {
	case conn == "" || conn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(conn, "redis://") || strings.HasPrefix(conn, "rediss://"):
		return NewRedis(ctx, conn)
	default:
		return nil, errors.Errorf("unsupported bus connection string: %q", conn)
	}
}
