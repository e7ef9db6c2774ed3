package model

import "main/internal/model/enum"

// CandleScore is the latest range/body score for one instrument.
type CandleScore struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Ts       int64   `json:"ts"`
	Score    float64 `json:"score_candle"`
	Dir      int     `json:"dir"`
}

// VolumeScore is the latest per-bar volume z-score.
type VolumeScore struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Ts       int64   `json:"ts"`
	Score    float64 `json:"score_volume"`
	Total    float64 `json:"total"`
	Delta    float64 `json:"delta"`
}

// OrderbookScore is the latest depth-imbalance / wall-ratio score.
type OrderbookScore struct {
	Exchange     string  `json:"exchange"`
	Symbol       string  `json:"symbol"`
	Ts           int64   `json:"ts"`
	Score        float64 `json:"score_orderbook"`
	MaxSizeRatio float64 `json:"max_size_ratio"`
	ImbalancePct float64 `json:"imbalance_pct"`
	SumBid       float64 `json:"sum_bid"`
	SumAsk       float64 `json:"sum_ask"`
}

// TrendRecord combines the three sub-scores into a directional impulse and
// an accumulated trend power over a rolling window.
type TrendRecord struct {
	Exchange        string  `json:"exchange"`
	Symbol          string  `json:"symbol"`
	Ts              int64   `json:"ts"`
	ScoreCandle     float64 `json:"score_candle"`
	ScoreVolume     float64 `json:"score_volume"`
	ScoreOrderbook  float64 `json:"score_orderbook"`
	ScoreImpulse    float64 `json:"score_impulse"`
	TrendPower      float64 `json:"trend_power"`
	TrendPowerDelta float64 `json:"trend_power_delta"`
}

// ExhaustionRecord carries momentum exhaustion and order-flow absorption
// scores, both in [0, 100].
type ExhaustionRecord struct {
	Exchange        string  `json:"exchange"`
	Symbol          string  `json:"symbol"`
	Ts              int64   `json:"ts"`
	ExhaustionScore float64 `json:"exhaustion_score"`
	AbsorptionScore float64 `json:"absorption_score"`
}

// ReversalSignal is the rule-based reversal probability with an expected
// move range [low, high].
type ReversalSignal struct {
	Exchange          string     `json:"exchange"`
	Symbol            string     `json:"symbol"`
	Ts                int64      `json:"ts"`
	Probability       float64    `json:"prob_reversal_rule"`
	HorizonBars       int        `json:"reversal_horizon_bars"`
	ExpectedMoveRange [2]float64 `json:"expected_move_range"`
}

// DetectedEvent is a discrete order-flow pattern (iceberg, wall, spoof).
type DetectedEvent struct {
	Type           enum.EventType `json:"type"`
	Exchange       string         `json:"exchange"`
	Symbol         string         `json:"symbol"`
	Side           enum.Side      `json:"side"`
	Price          float64        `json:"price"`
	Size           float64        `json:"size,omitempty"`
	VolumeEstimate float64        `json:"volume_estimate,omitempty"`
	Ts             int64          `json:"ts"`
	TsStart        int64          `json:"ts_start,omitempty"`
	TsEnd          int64          `json:"ts_end,omitempty"`
}

// WindowAggregate is buy/sell/delta volume over one tape window.
type WindowAggregate struct {
	BuyVol  float64 `json:"buy_vol"`
	SellVol float64 `json:"sell_vol"`
	Delta   float64 `json:"delta"`
}

// TapeTrade is the most recent trade with its large-trade flag.
type TapeTrade struct {
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Side  enum.Side `json:"side"`
	Large bool      `json:"large"`
}

// TapeSummary is the latest multi-window order-flow aggregate.
type TapeSummary struct {
	Ts         int64                      `json:"ts"`
	Aggregates map[string]WindowAggregate `json:"aggregates"`
	LastTrade  TapeTrade                  `json:"last_trade"`
}

// HeatmapRow is binned liquidity at one price bucket.
type HeatmapRow struct {
	Price  float64 `json:"price"`
	VolBid float64 `json:"vol_bid"`
	VolAsk float64 `json:"vol_ask"`
}

// HeatmapSlice is one time-sampled, price-binned liquidity slice.
type HeatmapSlice struct {
	Exchange string       `json:"exchange"`
	Symbol   string       `json:"symbol"`
	Ts       int64        `json:"ts"`
	Rows     []HeatmapRow `json:"rows"`
}

// FootprintLevel is traded volume by side at one price bucket of a bar:
// VolBid holds buy volume, VolAsk sell volume, Delta their difference.
type FootprintLevel struct {
	Price  float64 `json:"price"`
	VolBid float64 `json:"vol_bid"`
	VolAsk float64 `json:"vol_ask"`
	Delta  float64 `json:"delta"`
}

// ImbalanceLevel flags a price where one side dominates the level below.
type ImbalanceLevel struct {
	Price float64 `json:"price"`
	Side  string  `json:"side"`
	Ratio float64 `json:"ratio"`
}

// FootprintBar is the per-bar volume-at-price footprint.
type FootprintBar struct {
	Exchange        string           `json:"exchange"`
	Symbol          string           `json:"symbol"`
	Start           int64            `json:"start"`
	End             int64            `json:"end"`
	Levels          []FootprintLevel `json:"levels"`
	POCPrice        float64          `json:"poc_price"`
	ImbalanceLevels []ImbalanceLevel `json:"imbalance_levels"`
}
