package heatmap

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

const (
	// FootprintBarDuration is the bar size for volume-at-price bars.
	FootprintBarDuration = time.Minute
	// ImbalanceRatio is the diagonal dominance threshold.
	ImbalanceRatio = 3.0
)

// BuildFootprint folds trades of one bar into a volume-at-price footprint.
// Buy volume lands in VolBid and sell volume in VolAsk, so Delta stays
// buy minus sell. Levels are sorted ascending by price; POC is the level
// with the highest total volume, the lowest price winning ties. Diagonal
// imbalances compare a level's aggressive volume against the opposite side
// one bin below and only fire when that lower-bin volume is nonzero.
func BuildFootprint(trades []model.Trade, start, end int64, step float64) (model.FootprintBar, bool) {
	if len(trades) == 0 || step <= 0 {
		return model.FootprintBar{}, false
	}
	bins := make(map[float64]*model.FootprintLevel)
	for _, t := range trades {
		price := math.Round(t.Price/step) * step
		lvl, ok := bins[price]
		if !ok {
			lvl = &model.FootprintLevel{Price: price}
			bins[price] = lvl
		}
		if t.Side == enum.SideBuy {
			lvl.VolBid += t.Size
		} else {
			lvl.VolAsk += t.Size
		}
	}

	levels := make([]model.FootprintLevel, 0, len(bins))
	for _, lvl := range bins {
		lvl.Delta = lvl.VolBid - lvl.VolAsk
		levels = append(levels, *lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })

	var poc float64
	var pocTotal float64
	for _, lvl := range levels {
		total := lvl.VolBid + lvl.VolAsk
		if total > pocTotal {
			pocTotal = total
			poc = lvl.Price
		}
	}

	var imbalances []model.ImbalanceLevel
	for i := 1; i < len(levels); i++ {
		below := levels[i-1]
		curr := levels[i]
		if below.VolAsk > 0 && curr.VolBid >= below.VolAsk*ImbalanceRatio {
			imbalances = append(imbalances, model.ImbalanceLevel{
				Price: curr.Price,
				Side:  string(enum.SideBuy),
				Ratio: curr.VolBid / below.VolAsk,
			})
		}
		if below.VolBid > 0 && curr.VolAsk >= below.VolBid*ImbalanceRatio {
			imbalances = append(imbalances, model.ImbalanceLevel{
				Price: curr.Price,
				Side:  string(enum.SideSell),
				Ratio: curr.VolAsk / below.VolBid,
			})
		}
	}

	return model.FootprintBar{
		Start:           start,
		End:             end,
		Levels:          levels,
		POCPrice:        poc,
		ImbalanceLevels: imbalances,
	}, true
}

// FootprintEngine publishes one footprint bar per completed minute for one
// instrument, built from the raw trade ring.
type FootprintEngine struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration

	lastPublished int64
}

// NewFootprintEngine wires a footprint engine for one instrument. metrics may be nil.
func NewFootprintEngine(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *FootprintEngine {
	return &FootprintEngine{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: time.Second,
	}
}

// Run polls until the context is done.
func (e *FootprintEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *FootprintEngine) tick(ctx context.Context) {
	raw, err := e.bus.Range(ctx, bus.KeyTrades(e.exchange, e.symbol), -int64(bus.TradesMaxLen), -1)
	if err != nil {
		logs.Errorf("footprint read trades, err: %+v", err)
		return
	}
	trades := make([]model.Trade, 0, len(raw))
	var latest int64
	for _, item := range raw {
		var t model.Trade
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		trades = append(trades, t)
		if t.Ts > latest {
			latest = t.Ts
		}
	}
	if len(trades) == 0 {
		return
	}

	barMs := FootprintBarDuration.Milliseconds()
	// The bar containing the latest trade is still open; publish the one
	// before it, once.
	start := latest/barMs*barMs - barMs
	if start <= e.lastPublished {
		return
	}
	barTrades := make([]model.Trade, 0, len(trades))
	var priceSum float64
	for _, t := range trades {
		if t.Ts >= start && t.Ts < start+barMs {
			barTrades = append(barTrades, t)
			priceSum += t.Price
		}
	}
	if len(barTrades) == 0 {
		return
	}
	step := BinStep(priceSum / float64(len(barTrades)))

	bar, ok := BuildFootprint(barTrades, start, start+barMs, step)
	if !ok {
		return
	}
	bar.Exchange = e.exchange
	bar.Symbol = e.symbol

	payload, err := json.Marshal(bar)
	if err != nil {
		return
	}
	if err := e.bus.Append(ctx, bus.TopicFootprintBars, payload); err != nil {
		logs.Errorf("append footprint bar, err: %+v", err)
		return
	}
	if err := e.bus.Push(ctx, bus.KeyFootprint(e.exchange, e.symbol), payload, bus.FootprintMaxLen); err != nil {
		logs.Errorf("push footprint bar, err: %+v", err)
		return
	}
	e.lastPublished = start
	e.metrics.IncPublished(bus.TopicFootprintBars)
}
