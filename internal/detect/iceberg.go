package detect

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

const (
	// IcebergWindow is the trade lookback for level accumulation.
	IcebergWindow = 10 * time.Second
	// IcebergCheckInterval paces the detector.
	IcebergCheckInterval = 2 * time.Second
	// IcebergVolumeMult sets the qualifying threshold over the average
	// per-trade volume.
	IcebergVolumeMult = 2.5
	// IcebergPriceStepPct is the relative price bucketing step.
	IcebergPriceStepPct = 0.0001
	// icebergMinTrades is the minimum window population.
	icebergMinTrades = 5
)

type levelVolume struct {
	buy  float64
	sell float64
}

// DetectIcebergs scans a trade window for price levels absorbing far more
// volume than average, confirmed either by a V-shaped replenishment in the
// DOM history at that level or by volume strong enough on its own.
// It is a pure function over its inputs to keep the heuristic testable.
func DetectIcebergs(trades []model.Trade, snapshots []model.DOMSnapshot, nowTs int64) []model.DetectedEvent {
	if len(trades) == 0 || len(snapshots) == 0 {
		return nil
	}
	windowMs := IcebergWindow.Milliseconds()
	var inWindow []model.Trade
	for _, t := range trades {
		if nowTs-t.Ts < windowMs {
			inWindow = append(inWindow, t)
		}
	}
	if len(inWindow) < icebergMinTrades {
		return nil
	}

	var priceSum, volSum float64
	for _, t := range inWindow {
		priceSum += t.Price
		volSum += t.Size
	}
	mid := priceSum / float64(len(inWindow))
	step := mid * IcebergPriceStepPct
	if step < 0.01 {
		step = 0.01
	}
	avgVol := volSum / float64(len(inWindow))
	if avgVol <= 0 {
		avgVol = 1
	}
	threshold := avgVol * IcebergVolumeMult

	levels := make(map[float64]*levelVolume)
	for _, t := range inWindow {
		lvl := math.Round(t.Price/step) * step
		v, ok := levels[lvl]
		if !ok {
			v = &levelVolume{}
			levels[lvl] = v
		}
		if t.Side == enum.SideBuy {
			v.buy += t.Size
		} else {
			v.sell += t.Size
		}
	}

	var history []model.DOMSnapshot
	for _, s := range snapshots {
		if nowTs-s.Ts < windowMs {
			history = append(history, s)
		}
	}

	var out []model.DetectedEvent
	for lvl, vol := range levels {
		total := vol.buy + vol.sell
		if total < threshold {
			continue
		}
		side := enum.SideSell
		if vol.buy >= vol.sell {
			side = enum.SideBuy
		}
		sizes := make([]float64, 0, len(history))
		for _, snap := range history {
			sizes = append(sizes, sizeAtLevel(snap, lvl, side, step))
		}
		if replenished(sizes) || total > threshold*2 {
			out = append(out, model.DetectedEvent{
				Type:           enum.EventIcebergDetected,
				Side:           side,
				Price:          lvl,
				VolumeEstimate: total,
				Ts:             nowTs,
				TsStart:        nowTs - windowMs,
				TsEnd:          nowTs,
			})
		}
	}
	return out
}

// replenished reports a V-shaped size pattern: a drop followed by a recovery
// above the trough, at any 3 consecutive samples.
func replenished(sizes []float64) bool {
	for i := 0; i+2 < len(sizes); i++ {
		if sizes[i] > sizes[i+1] && sizes[i+1] < sizes[i+2] && sizes[i+2] > 0 {
			return true
		}
	}
	return false
}

func sizeAtLevel(snap model.DOMSnapshot, level float64, side enum.Side, step float64) float64 {
	rows := snap.Asks
	if side == enum.SideBuy {
		rows = snap.Bids
	}
	for _, row := range rows {
		if math.Abs(row.Price-level) <= step/2 {
			return row.Size
		}
	}
	return 0
}

// IcebergDetector periodically runs the heuristic over the trade and DOM
// slice rings for one instrument and appends detected events.
type IcebergDetector struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
}

// NewIcebergDetector wires a detector for one instrument. metrics may be nil.
func NewIcebergDetector(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *IcebergDetector {
	return &IcebergDetector{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: IcebergCheckInterval,
	}
}

// Run polls until the context is done.
func (d *IcebergDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx, time.Now().UnixMilli())
		}
	}
}

func (d *IcebergDetector) tick(ctx context.Context, nowMs int64) {
	rawTrades, err := d.bus.Range(ctx, bus.KeyTrades(d.exchange, d.symbol), -500, -1)
	if err != nil {
		logs.Errorf("iceberg read trades, err: %+v", err)
		return
	}
	rawSlices, err := d.bus.Range(ctx, bus.KeySlices(d.exchange, d.symbol), -100, -1)
	if err != nil {
		logs.Errorf("iceberg read slices, err: %+v", err)
		return
	}
	trades := make([]model.Trade, 0, len(rawTrades))
	for _, item := range rawTrades {
		var t model.Trade
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	snapshots := make([]model.DOMSnapshot, 0, len(rawSlices))
	for _, item := range rawSlices {
		var s model.DOMSnapshot
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		snapshots = append(snapshots, s)
	}

	for _, ev := range DetectIcebergs(trades, snapshots, nowMs) {
		ev.Exchange = d.exchange
		ev.Symbol = d.symbol
		publishEvent(ctx, d.bus, d.metrics, ev)
	}
}
