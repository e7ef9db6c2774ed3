package heatmap

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

const (
	// SampleInterval paces the sampler.
	SampleInterval = 500 * time.Millisecond
	// BinPct is the relative price bin width.
	BinPct = 0.0001
	// minBin floors the bin width for low-priced instruments.
	minBin = 0.01
)

// BinStep derives the price bin width from a mid price.
func BinStep(mid float64) float64 {
	step := mid * BinPct
	if step < minBin {
		step = minBin
	}
	return step
}

// BinLiquidity folds a DOM snapshot into price-binned bid/ask liquidity rows,
// sorted ascending by price. Rows with zero volume on both sides are dropped.
func BinLiquidity(snap model.DOMSnapshot) []model.HeatmapRow {
	mid := snap.Mid()
	if mid <= 0 {
		return nil
	}
	step := BinStep(mid)
	bins := make(map[float64]*model.HeatmapRow)
	fold := func(levels []model.PriceLevel, ask bool) {
		for _, lvl := range levels {
			if lvl.Size <= 0 {
				continue
			}
			price := math.Round(lvl.Price/step) * step
			row, ok := bins[price]
			if !ok {
				row = &model.HeatmapRow{Price: price}
				bins[price] = row
			}
			if ask {
				row.VolAsk += lvl.Size
			} else {
				row.VolBid += lvl.Size
			}
		}
	}
	fold(snap.Bids, false)
	fold(snap.Asks, true)

	rows := make([]model.HeatmapRow, 0, len(bins))
	for _, row := range bins {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Price < rows[j].Price })
	return rows
}

// Sampler periodically bins the latest DOM slice of one instrument into a
// heatmap slice and publishes it.
type Sampler struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
	lastTs   int64
}

// NewSampler wires a heatmap sampler for one instrument. metrics may be nil.
func NewSampler(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *Sampler {
	return &Sampler{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: SampleInterval,
	}
}

// Run samples until the context is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	raw, err := s.bus.Range(ctx, bus.KeySlices(s.exchange, s.symbol), -1, -1)
	if err != nil {
		logs.Errorf("heatmap read slices, err: %+v", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var snap model.DOMSnapshot
	if err := json.Unmarshal(raw[0], &snap); err != nil {
		return
	}
	if snap.Ts != 0 && snap.Ts == s.lastTs {
		return
	}
	rows := BinLiquidity(snap)
	if len(rows) == 0 {
		return
	}
	s.lastTs = snap.Ts

	out := model.HeatmapSlice{
		Exchange: s.exchange,
		Symbol:   s.symbol,
		Ts:       snap.Ts,
		Rows:     rows,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.bus.Append(ctx, bus.TopicHeatmapSlices, payload); err != nil {
		logs.Errorf("append heatmap slice, err: %+v", err)
		return
	}
	if err := s.bus.Push(ctx, bus.KeyHeatmap(s.exchange, s.symbol), payload, bus.HeatmapMaxLen); err != nil {
		logs.Errorf("push heatmap slice, err: %+v", err)
		return
	}
	s.metrics.IncPublished(bus.TopicHeatmapSlices)
}
