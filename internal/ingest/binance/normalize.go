package binance

import (
	"strconv"

	"main/internal/model"
	"main/internal/model/enum"

	"github.com/yanun0323/errors"
)

// DepthUpdate is one diff depth event.
type DepthUpdate struct {
	EventType     string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	FirstUpdateID int64       `json:"U"`
	FinalUpdateID int64       `json:"u"`
	Bids          [][2]string `json:"b"` // [0]price [1]quantity
	Asks          [][2]string `json:"a"` // [0]price [1]quantity
}

// AggTrade is one aggregated trade event.
type AggTrade struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

// NormalizeSnapshot converts a REST depth snapshot.
func NormalizeSnapshot(symbol string, s DepthSnapshot) (model.BookUpdate, error) {
	bids, err := parseLevels(s.Bids)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse bids")
	}
	asks, err := parseLevels(s.Asks)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse asks")
	}
	ts := s.EventTime
	if ts == 0 {
		ts = s.LastUpdateID
	}
	return model.BookUpdate{
		Exchange: Exchange,
		Symbol:   symbol,
		Kind:     enum.UpdateSnapshot,
		Ts:       ts,
		Bids:     bids,
		Asks:     asks,
		UpdateID: s.LastUpdateID,
	}, nil
}

// NormalizeDepth converts a diff depth event. Zero quantities pass through
// as level removals.
func NormalizeDepth(symbol string, d DepthUpdate) (model.BookUpdate, error) {
	bids, err := parseLevels(d.Bids)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse bids")
	}
	asks, err := parseLevels(d.Asks)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse asks")
	}
	return model.BookUpdate{
		Exchange: Exchange,
		Symbol:   symbol,
		Kind:     enum.UpdateDelta,
		Ts:       d.EventTime,
		Bids:     bids,
		Asks:     asks,
		UpdateID: d.FinalUpdateID,
	}, nil
}

// NormalizeAggTrade converts an aggregated trade. The aggressor bought when
// the buyer was not the maker.
func NormalizeAggTrade(symbol string, t AggTrade) (model.Trade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return model.Trade{}, errors.Wrapf(err, "parse price: %q", t.Price)
	}
	size, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return model.Trade{}, errors.Wrapf(err, "parse quantity: %q", t.Quantity)
	}
	return model.Trade{
		Exchange: Exchange,
		Symbol:   symbol,
		Side:     sideFromMaker(t.BuyerIsMaker),
		Price:    price,
		Size:     size,
		Ts:       t.TradeTime,
		TradeID:  strconv.FormatInt(t.TradeID, 10),
	}, nil
}

func parseLevels(rows [][2]string) ([]model.PriceLevel, error) {
	out := make([]model.PriceLevel, 0, len(rows))
	for _, row := range rows {
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price: %q", row[0])
		}
		size, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse size: %q", row[1])
		}
		out = append(out, model.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}
