package ingest

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// ReconnectDelay is the fixed wait between connection attempts.
const ReconnectDelay = 2 * time.Second

// Feed is one venue connection for one symbol. Run blocks until the
// connection drops or the context is done; the runner handles retry.
type Feed interface {
	Exchange() string
	Run(ctx context.Context, symbol string, pub *Publisher) error
}

// Runner keeps a feed connected, reconnecting on a fixed delay forever.
// Sequence numbering restarts from the feed's own snapshot after each
// reconnect, so no explicit resynchronization happens here.
type Runner struct {
	feed   Feed
	symbol string
	pub    *Publisher
}

// NewRunner wires a runner for one feed and symbol.
func NewRunner(feed Feed, symbol string, pub *Publisher) *Runner {
	return &Runner{feed: feed, symbol: symbol, pub: pub}
}

// Run loops the feed until the context is done.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		default:
		}

		err := r.feed.Run(ctx, r.symbol, r.pub)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logs.Errorf("feed %s %s dropped, err: %+v", r.feed.Exchange(), r.symbol, err)
		} else {
			logs.Infof("feed %s %s closed, reconnecting", r.feed.Exchange(), r.symbol)
		}

		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}
	}
}
