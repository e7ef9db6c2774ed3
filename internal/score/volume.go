package score

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
	// RollingBars is the z-score history length in bars.
	RollingBars = 50
	// DefaultBarDuration buckets trades into fixed bars.
	DefaultBarDuration = time.Minute
)

// ScoreFromZ maps a z-score onto the discrete 0..6 scale.
func ScoreFromZ(z float64) float64 {
	switch {
	case z <= 0.5:
		return 0
	case z <= 1.0:
		return 2
	case z <= 2.0:
		return 4
	default:
		return 6
	}
}

type volumeBar struct {
	barStart  int64
	buy       float64
	sell      float64
	total     float64
	volHist   *rolling.Window[float64]
	deltaHist *rolling.Window[float64]
}

// VolumeEngine buckets trades into fixed-duration bars and z-scores each
// completed bar's volume and |delta| against a rolling history.
type VolumeEngine struct {
	bus     bus.Bus
	metrics *obs.Metrics
	barMs   int64
	bars    map[string]*volumeBar
}

// NewVolumeEngine wires a volume score engine to a bus. metrics may be nil.
func NewVolumeEngine(b bus.Bus, metrics *obs.Metrics, barDuration time.Duration) *VolumeEngine {
	if barDuration <= 0 {
		barDuration = DefaultBarDuration
	}
	return &VolumeEngine{
		bus:     b,
		metrics: metrics,
		barMs:   barDuration.Milliseconds(),
		bars:    make(map[string]*volumeBar),
	}
}

// Run consumes the trades topic until the context is done.
func (e *VolumeEngine) Run(ctx context.Context) {
	cursors := map[bus.Topic]string{bus.TopicTrades: bus.CursorLive}
	for {
		entries, err := e.bus.Read(ctx, cursors, 200, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("volume score read, err: %+v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, entry := range entries {
			e.metrics.IncConsumed(bus.TopicTrades)
			var t model.Trade
			if err := json.Unmarshal(entry.Payload, &t); err != nil {
				e.metrics.IncDropped(bus.TopicTrades)
				continue
			}
			e.Handle(ctx, t)
		}
	}
}

// Handle folds one trade into its bar, emitting a score on bar rollover.
func (e *VolumeEngine) Handle(ctx context.Context, t model.Trade) {
	if t.Exchange == "" || t.Symbol == "" {
		return
	}
	key := t.Exchange + ":" + t.Symbol
	barStart := t.Ts / e.barMs * e.barMs
	bar, ok := e.bars[key]
	if !ok {
		bar = &volumeBar{
			barStart:  barStart,
			volHist:   rolling.NewWindow[float64](RollingBars),
			deltaHist: rolling.NewWindow[float64](RollingBars),
		}
		e.bars[key] = bar
	}
	if barStart != bar.barStart {
		e.rollover(ctx, t.Exchange, t.Symbol, bar, barStart)
	}
	bar.total += t.Size
	if t.Side == enum.SideBuy {
		bar.buy += t.Size
	} else {
		bar.sell += t.Size
	}
}

func (e *VolumeEngine) rollover(ctx context.Context, exchange, symbol string, bar *volumeBar, nextStart int64) {
	total := bar.total
	delta := bar.buy - bar.sell
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	zVol := rolling.ZScore(bar.volHist.Values(), total)
	zDelta := rolling.ZScore(bar.deltaHist.Values(), absDelta)
	s := ScoreFromZ(zVol)
	if d := ScoreFromZ(zDelta); d > s {
		s = d
	}

	out := model.VolumeScore{
		Exchange: exchange,
		Symbol:   symbol,
		Ts:       bar.barStart,
		Score:    s,
		Total:    total,
		Delta:    delta,
	}
	if payload, err := json.Marshal(out); err == nil {
		if err := e.bus.Set(ctx, bus.KeyScoreVolume(exchange, symbol), payload, KeyTTL); err != nil {
			logs.Errorf("publish volume score, err: %+v", err)
		} else {
			e.metrics.IncPublished(bus.TopicTrades)
		}
	}

	bar.volHist.Push(total)
	bar.deltaHist.Push(absDelta)
	bar.barStart = nextStart
	bar.buy, bar.sell, bar.total = 0, 0, 0
}
