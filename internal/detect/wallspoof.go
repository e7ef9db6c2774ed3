package detect

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/rolling"

	"github.com/yanun0323/logs"
)

const (
	// WallMedianMult qualifies a level as a wall against its neighbors.
	WallMedianMult = 3.0
	// WallCheckInterval paces the detector.
	WallCheckInterval = 2 * time.Second
	// SpoofSizeMult qualifies a level as spoof-sized against the side average.
	SpoofSizeMult = 2.0
	// LevelsLook caps how many levels per side are scanned.
	LevelsLook = 20
	// wallMinLevels is the minimum book depth worth scanning.
	wallMinLevels = 5
)

type wallKey struct {
	side  enum.Side
	price float64
}

// WallSpoofDetector scans the DOM slice ring for persistent outsized levels
// (walls) and for large liquidity that vanishes without being filled
// (spoofs). Walls fire once per (side, price) until the level stops
// qualifying; no removal event is emitted when a wall disappears.
type WallSpoofDetector struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
	seen     map[wallKey]struct{}
}

// NewWallSpoofDetector wires a detector for one instrument. metrics may be nil.
func NewWallSpoofDetector(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *WallSpoofDetector {
	return &WallSpoofDetector{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: WallCheckInterval,
		seen:     make(map[wallKey]struct{}),
	}
}

// Run polls until the context is done.
func (d *WallSpoofDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *WallSpoofDetector) tick(ctx context.Context) {
	raw, err := d.bus.Range(ctx, bus.KeySlices(d.exchange, d.symbol), -30, -1)
	if err != nil {
		logs.Errorf("wall/spoof read slices, err: %+v", err)
		return
	}
	snapshots := make([]model.DOMSnapshot, 0, len(raw))
	for _, item := range raw {
		var s model.DOMSnapshot
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		snapshots = append(snapshots, s)
	}
	if len(snapshots) == 0 {
		return
	}
	latest := snapshots[len(snapshots)-1]
	ts := latest.Ts
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	var events []model.DetectedEvent
	events = append(events, d.ScanWalls(enum.SideBuy, topLevels(latest.Bids), ts)...)
	events = append(events, d.ScanWalls(enum.SideSell, topLevels(latest.Asks), ts)...)

	if len(snapshots) >= 2 {
		prev := snapshots[len(snapshots)-2]
		events = append(events, DetectSpoofs(enum.SideBuy, topLevels(prev.Bids), topLevels(latest.Bids), ts)...)
		events = append(events, DetectSpoofs(enum.SideSell, topLevels(prev.Asks), topLevels(latest.Asks), ts)...)
	}

	for _, ev := range events {
		ev.Exchange = d.exchange
		ev.Symbol = d.symbol
		publishEvent(ctx, d.bus, d.metrics, ev)
	}
}

// ScanWalls emits WALL_CREATED for levels whose size dominates the median of
// their +-2 neighbors. The seen-set keeps an unchanged wall from re-firing
// and forgets a level as soon as it stops qualifying.
func (d *WallSpoofDetector) ScanWalls(side enum.Side, levels []model.PriceLevel, ts int64) []model.DetectedEvent {
	if len(levels) < wallMinLevels {
		return nil
	}
	var out []model.DetectedEvent
	for i, lvl := range levels {
		if lvl.Size <= 0 {
			continue
		}
		neighbors := make([]float64, 0, 4)
		for j := i - 2; j <= i+2; j++ {
			if j == i || j < 0 || j >= len(levels) {
				continue
			}
			neighbors = append(neighbors, levels[j].Size)
		}
		med := rolling.Median(neighbors)
		if med <= 0 {
			continue
		}
		key := wallKey{side: side, price: lvl.Price}
		if lvl.Size >= med*WallMedianMult {
			if _, exists := d.seen[key]; exists {
				continue
			}
			d.seen[key] = struct{}{}
			out = append(out, model.DetectedEvent{
				Type:  enum.EventWallCreated,
				Side:  side,
				Price: lvl.Price,
				Size:  lvl.Size,
				Ts:    ts,
			})
		} else {
			delete(d.seen, key)
		}
	}
	return out
}

// DetectSpoofs flags levels that were at least SpoofSizeMult times the side
// average in the previous sample and shrank below half their size without a
// matching fill by the current one.
func DetectSpoofs(side enum.Side, prev, curr []model.PriceLevel, ts int64) []model.DetectedEvent {
	if len(prev) == 0 || len(curr) == 0 {
		return nil
	}
	currBySize := make(map[float64]float64, len(curr))
	var sum float64
	for _, lvl := range curr {
		currBySize[lvl.Price] = lvl.Size
		sum += lvl.Size
	}
	avg := sum / float64(len(curr))

	var out []model.DetectedEvent
	for _, lvl := range prev {
		if lvl.Size < avg*SpoofSizeMult {
			continue
		}
		if currBySize[lvl.Price] < lvl.Size*0.5 {
			out = append(out, model.DetectedEvent{
				Type:  enum.EventSpoofSignal,
				Side:  side,
				Price: lvl.Price,
				Size:  lvl.Size,
				Ts:    ts,
			})
		}
	}
	return out
}

func topLevels(levels []model.PriceLevel) []model.PriceLevel {
	if len(levels) > LevelsLook {
		return levels[:LevelsLook]
	}
	return levels
}

func publishEvent(ctx context.Context, b bus.Bus, metrics *obs.Metrics, ev model.DetectedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := b.Append(ctx, bus.TopicEvents, payload); err != nil {
		logs.Errorf("append detected event, err: %+v", err)
		return
	}
	if err := b.Push(ctx, bus.KeyEvents(ev.Exchange, ev.Symbol), payload, bus.EventsMaxLen); err != nil {
		logs.Errorf("push detected event, err: %+v", err)
		return
	}
	metrics.IncPublished(bus.TopicEvents)
}
