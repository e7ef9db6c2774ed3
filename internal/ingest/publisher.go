package ingest

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"

	"github.com/yanun0323/errors"
)

// Publisher writes normalized market data onto the bus topics. Invalid
// records are dropped here so venue adapters stay thin.
type Publisher struct {
	bus     bus.Bus
	metrics *obs.Metrics
}

// NewPublisher wires a publisher to a bus. metrics may be nil.
func NewPublisher(b bus.Bus, metrics *obs.Metrics) *Publisher {
	return &Publisher{bus: b, metrics: metrics}
}

// PublishTrade drops zero and negative sized trades before appending.
func (p *Publisher) PublishTrade(ctx context.Context, t model.Trade) error {
	if t.Size <= 0 || !t.Side.IsAvailable() {
		p.metrics.IncDropped(bus.TopicTrades)
		return nil
	}
	return p.append(ctx, bus.TopicTrades, t)
}

// PublishBookUpdate appends a snapshot or delta.
func (p *Publisher) PublishBookUpdate(ctx context.Context, u model.BookUpdate) error {
	if !u.Kind.IsAvailable() {
		p.metrics.IncDropped(bus.TopicOrderbookUpdates)
		return errors.Errorf("book update kind: %q", u.Kind)
	}
	return p.append(ctx, bus.TopicOrderbookUpdates, u)
}

func (p *Publisher) PublishCandle(ctx context.Context, c model.Candle) error {
	return p.append(ctx, bus.TopicKline, c)
}

func (p *Publisher) PublishOpenInterest(ctx context.Context, oi model.OpenInterest) error {
	return p.append(ctx, bus.TopicOpenInterest, oi)
}

func (p *Publisher) PublishLiquidation(ctx context.Context, l model.Liquidation) error {
	return p.append(ctx, bus.TopicLiquidations, l)
}

func (p *Publisher) append(ctx context.Context, topic bus.Topic, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal market data")
	}
	started := time.Now()
	if err := p.bus.Append(ctx, topic, payload); err != nil {
		return errors.Wrap(err, "append market data").With("topic", topic)
	}
	p.metrics.ObservePublish(time.Since(started))
	p.metrics.IncPublished(topic)
	return nil
}
