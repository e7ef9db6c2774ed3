package mdg

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"main/internal/ingest"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/yanun0323/logs"
)

// Exchange is the synthetic venue name.
const Exchange = "mdg"

// Config controls the synthetic feed.
type Config struct {
	Symbol     string
	BasePrice  float64
	BaseSize   float64
	Depth      int
	TickEvery  time.Duration
	Seed       int64
	KlineEvery time.Duration
}

func (c Config) withDefaults() Config {
	if c.BasePrice <= 0 {
		c.BasePrice = 50000
	}
	if c.BaseSize <= 0 {
		c.BaseSize = 1
	}
	if c.Depth <= 0 {
		c.Depth = 50
	}
	if c.TickEvery <= 0 {
		c.TickEvery = 100 * time.Millisecond
	}
	if c.KlineEvery <= 0 {
		c.KlineEvery = time.Minute
	}
	return c
}

// Validate checks if the config is usable.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("mdg config: Symbol is empty")
	}
	return nil
}

// Generator produces a deterministic random-walk feed: a book snapshot, then
// per-tick deltas and trades, with a kline bar per interval. Useful for
// exercising the whole pipeline without venue connectivity.
type Generator struct {
	cfg Config
	rng *rand.Rand

	mid       float64
	open      float64
	high      float64
	low       float64
	volume    float64
	barStart  int64
	snapshots int
}

// NewGenerator builds a generator from a config.
func NewGenerator(cfg Config) (*Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		mid: cfg.BasePrice,
	}, nil
}

// Snapshot builds a full synthetic book around the current mid.
func (g *Generator) Snapshot(now time.Time) model.BookUpdate {
	g.snapshots++
	ts := now.UnixMilli()
	bids := make([]model.PriceLevel, 0, g.cfg.Depth)
	asks := make([]model.PriceLevel, 0, g.cfg.Depth)
	step := g.tickSize()
	for i := 1; i <= g.cfg.Depth; i++ {
		size := g.cfg.BaseSize * (0.5 + g.rng.Float64())
		bids = append(bids, model.PriceLevel{Price: g.mid - float64(i)*step, Size: size})
		size = g.cfg.BaseSize * (0.5 + g.rng.Float64())
		asks = append(asks, model.PriceLevel{Price: g.mid + float64(i)*step, Size: size})
	}
	return model.BookUpdate{
		Exchange: Exchange,
		Symbol:   g.cfg.Symbol,
		Kind:     enum.UpdateSnapshot,
		Ts:       ts,
		Bids:     bids,
		Asks:     asks,
		UpdateID: int64(g.snapshots),
	}
}

// Tick advances the walk one step, returning a book delta and a trade.
func (g *Generator) Tick(now time.Time) (model.BookUpdate, model.Trade) {
	ts := now.UnixMilli()
	step := g.tickSize()
	g.mid += (g.rng.Float64() - 0.5) * 4 * step
	if g.mid < step {
		g.mid = step
	}

	side := enum.SideSell
	if g.rng.Float64() < 0.5 {
		side = enum.SideBuy
	}
	size := g.cfg.BaseSize * g.rng.Float64() * 2
	if size <= 0 {
		size = g.cfg.BaseSize
	}
	trade := model.Trade{
		Exchange: Exchange,
		Symbol:   g.cfg.Symbol,
		Side:     side,
		Price:    g.mid,
		Size:     size,
		Ts:       ts,
	}
	g.fold(trade)

	levels := 1 + g.rng.Intn(3)
	bids := make([]model.PriceLevel, 0, levels)
	asks := make([]model.PriceLevel, 0, levels)
	for i := 0; i < levels; i++ {
		offset := float64(1+g.rng.Intn(g.cfg.Depth)) * step
		levelSize := g.cfg.BaseSize * g.rng.Float64() * 2
		if g.rng.Float64() < 0.1 {
			levelSize = 0 // removal
		}
		if g.rng.Float64() < 0.5 {
			bids = append(bids, model.PriceLevel{Price: g.mid - offset, Size: levelSize})
		} else {
			asks = append(asks, model.PriceLevel{Price: g.mid + offset, Size: levelSize})
		}
	}
	delta := model.BookUpdate{
		Exchange: Exchange,
		Symbol:   g.cfg.Symbol,
		Kind:     enum.UpdateDelta,
		Ts:       ts,
		Bids:     bids,
		Asks:     asks,
	}
	return delta, trade
}

// Bar closes the running kline bar, if any trades landed in it.
func (g *Generator) Bar(now time.Time) (model.Candle, bool) {
	if g.barStart == 0 {
		return model.Candle{}, false
	}
	bar := model.Candle{
		Exchange: Exchange,
		Symbol:   g.cfg.Symbol,
		Interval: "1",
		Start:    g.barStart,
		Open:     g.open,
		High:     g.high,
		Low:      g.low,
		Close:    g.mid,
		Volume:   g.volume,
		Confirm:  true,
	}
	g.barStart = 0
	g.volume = 0
	return bar, true
}

func (g *Generator) fold(t model.Trade) {
	if g.barStart == 0 {
		g.barStart = t.Ts
		g.open = t.Price
		g.high = t.Price
		g.low = t.Price
	}
	g.high = math.Max(g.high, t.Price)
	g.low = math.Min(g.low, t.Price)
	g.volume += t.Size
}

func (g *Generator) tickSize() float64 {
	step := g.cfg.BasePrice * 0.0001
	if step < 0.01 {
		step = 0.01
	}
	return step
}

// Run publishes the synthetic feed until the context is done.
func (g *Generator) Run(ctx context.Context, pub *ingest.Publisher) error {
	if err := pub.PublishBookUpdate(ctx, g.Snapshot(time.Now())); err != nil {
		return err
	}

	ticker := time.NewTicker(g.cfg.TickEvery)
	defer ticker.Stop()
	klines := time.NewTicker(g.cfg.KlineEvery)
	defer klines.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			delta, trade := g.Tick(now)
			if err := pub.PublishBookUpdate(ctx, delta); err != nil {
				logs.Errorf("mdg publish delta, err: %+v", err)
			}
			if err := pub.PublishTrade(ctx, trade); err != nil {
				logs.Errorf("mdg publish trade, err: %+v", err)
			}
		case now := <-klines.C:
			if bar, ok := g.Bar(now); ok {
				if err := pub.PublishCandle(ctx, bar); err != nil {
					logs.Errorf("mdg publish kline, err: %+v", err)
				}
			}
		}
	}
}
