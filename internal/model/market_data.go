package model

import (
	"encoding/json"

	"main/internal/model/enum"
)

// PriceLevel is one (price, size) row of an order book side.
// It marshals as a two-element array to stay wire-compatible with the
// venue-normalized [[price, size], ...] layout.
type PriceLevel struct {
	Price float64
	Size  float64
}

func (l PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Price, l.Size})
}

func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var arr [2]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	l.Price, l.Size = arr[0], arr[1]
	return nil
}

// Trade is one normalized fill. Size is always > 0 once emitted.
type Trade struct {
	Exchange string    `json:"exchange"`
	Symbol   string    `json:"symbol"`
	Side     enum.Side `json:"side"`
	Price    float64   `json:"price"`
	Size     float64   `json:"size"`
	Ts       int64     `json:"ts"`
	TradeID  string    `json:"trade_id,omitempty"`
}

// BookUpdate is a normalized order book snapshot or delta.
// In a delta, size <= 0 removes the level.
type BookUpdate struct {
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Kind     enum.UpdateKind `json:"type"`
	Ts       int64           `json:"ts"`
	Bids     []PriceLevel    `json:"bids"`
	Asks     []PriceLevel    `json:"asks"`
	UpdateID int64           `json:"update_id,omitempty"`
}

// Candle is one kline bar. Only Confirm==true bars feed bar-based analytics.
type Candle struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Start    int64   `json:"start"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Confirm  bool    `json:"confirm"`
}

// OpenInterest is one open-interest observation.
type OpenInterest struct {
	Exchange          string  `json:"exchange"`
	Symbol            string  `json:"symbol"`
	Ts                int64   `json:"ts"`
	OpenInterest      float64 `json:"open_interest"`
	OpenInterestValue float64 `json:"open_interest_value,omitempty"`
}

// Liquidation is one forced liquidation.
// Side Buy means a long was liquidated, Sell a short.
type Liquidation struct {
	Exchange string    `json:"exchange"`
	Symbol   string    `json:"symbol"`
	Ts       int64     `json:"ts"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Side     enum.Side `json:"side"`
}

// DOMSnapshot is a read-only projection of an order book: bids sorted
// descending by price, asks ascending, truncated to a depth limit.
type DOMSnapshot struct {
	Ts   int64        `json:"ts"`
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// Mid returns the midpoint of the best bid and ask. With one side empty it
// falls back to the other side's best price; with both empty it returns 0.
func (d DOMSnapshot) Mid() float64 {
	switch {
	case len(d.Bids) > 0 && len(d.Asks) > 0:
		return (d.Bids[0].Price + d.Asks[0].Price) / 2
	case len(d.Bids) > 0:
		return d.Bids[0].Price
	case len(d.Asks) > 0:
		return d.Asks[0].Price
	default:
		return 0
	}
}
