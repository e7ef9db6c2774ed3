package bybit

import (
	"strconv"

	"main/internal/model"
	"main/internal/model/enum"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// TradeMessage is one publicTrade push, carrying a batch of fills.
type TradeMessage struct {
	Topic string      `json:"topic"`
	Ts    int64       `json:"ts"`
	Data  []TradeData `json:"data"`
}

type TradeData struct {
	TradeTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Side      string `json:"S"` // "Buy" / "Sell"
	Size      string `json:"v"`
	Price     string `json:"p"`
	TradeID   string `json:"i"`
}

// OrderbookMessage is one orderbook.200 push, snapshot or delta.
type OrderbookMessage struct {
	Topic string        `json:"topic"`
	Type  string        `json:"type"` // "snapshot" / "delta"
	Ts    int64         `json:"ts"`
	Data  OrderbookData `json:"data"`
}

type OrderbookData struct {
	Symbol   string      `json:"s"`
	Bids     [][2]string `json:"b"` // [0]price [1]size
	Asks     [][2]string `json:"a"` // [0]price [1]size
	UpdateID int64       `json:"u"`
	Seq      int64       `json:"seq"`
}

// KlineMessage is one kline push, carrying a batch of bars.
type KlineMessage struct {
	Topic string      `json:"topic"`
	Ts    int64       `json:"ts"`
	Data  []KlineData `json:"data"`
}

type KlineData struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Interval string `json:"interval"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
	Confirm  bool   `json:"confirm"`
}

// TickerMessage is one tickers push; deltas omit unchanged fields.
type TickerMessage struct {
	Topic string     `json:"topic"`
	Type  string     `json:"type"`
	Ts    int64      `json:"ts"`
	Data  TickerData `json:"data"`
}

type TickerData struct {
	Symbol            string `json:"symbol"`
	OpenInterest      string `json:"openInterest"`
	OpenInterestValue string `json:"openInterestValue"`
}

// LiquidationMessage is one allLiquidation push.
type LiquidationMessage struct {
	Topic string            `json:"topic"`
	Ts    int64             `json:"ts"`
	Data  []LiquidationData `json:"data"`
}

type LiquidationData struct {
	Ts     int64  `json:"T"`
	Symbol string `json:"s"`
	Side   string `json:"S"`
	Size   string `json:"v"`
	Price  string `json:"p"`
}

// NormalizeTrades converts a trade batch, skipping malformed rows.
func NormalizeTrades(symbol string, msg TradeMessage) []model.Trade {
	out := make([]model.Trade, 0, len(msg.Data))
	for _, d := range msg.Data {
		price, err := strconv.ParseFloat(d.Price, 64)
		if err != nil {
			logs.Errorf("parse bybit trade price %q, err: %+v", d.Price, err)
			continue
		}
		size, err := strconv.ParseFloat(d.Size, 64)
		if err != nil {
			logs.Errorf("parse bybit trade size %q, err: %+v", d.Size, err)
			continue
		}
		out = append(out, model.Trade{
			Exchange: Exchange,
			Symbol:   symbol,
			Side:     enum.Side(d.Side),
			Price:    price,
			Size:     size,
			Ts:       d.TradeTime,
			TradeID:  d.TradeID,
		})
	}
	return out
}

// NormalizeOrderbook converts a book push; the venue's snapshot/delta types
// map straight onto the normalized kinds.
func NormalizeOrderbook(symbol string, msg OrderbookMessage) (model.BookUpdate, error) {
	kind := enum.UpdateKind(msg.Type)
	if !kind.IsAvailable() {
		return model.BookUpdate{}, errors.Errorf("orderbook type: %q", msg.Type)
	}
	bids, err := parseLevels(msg.Data.Bids)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse bids")
	}
	asks, err := parseLevels(msg.Data.Asks)
	if err != nil {
		return model.BookUpdate{}, errors.Wrap(err, "parse asks")
	}
	return model.BookUpdate{
		Exchange: Exchange,
		Symbol:   symbol,
		Kind:     kind,
		Ts:       msg.Ts,
		Bids:     bids,
		Asks:     asks,
		UpdateID: msg.Data.UpdateID,
	}, nil
}

// NormalizeKlines converts a kline batch, skipping malformed rows.
func NormalizeKlines(symbol string, msg KlineMessage) []model.Candle {
	out := make([]model.Candle, 0, len(msg.Data))
	for _, d := range msg.Data {
		open, err1 := strconv.ParseFloat(d.Open, 64)
		high, err2 := strconv.ParseFloat(d.High, 64)
		low, err3 := strconv.ParseFloat(d.Low, 64)
		closePrice, err4 := strconv.ParseFloat(d.Close, 64)
		volume, err5 := strconv.ParseFloat(d.Volume, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			logs.Errorf("parse bybit kline: %+v", d)
			continue
		}
		out = append(out, model.Candle{
			Exchange: Exchange,
			Symbol:   symbol,
			Interval: d.Interval,
			Start:    d.Start,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
			Confirm:  d.Confirm,
		})
	}
	return out
}

// NormalizeOpenInterest extracts open interest from a ticker push. Deltas
// without the field report ok false.
func NormalizeOpenInterest(symbol string, msg TickerMessage) (model.OpenInterest, bool) {
	if msg.Data.OpenInterest == "" {
		return model.OpenInterest{}, false
	}
	oi, err := strconv.ParseFloat(msg.Data.OpenInterest, 64)
	if err != nil {
		logs.Errorf("parse bybit open interest %q, err: %+v", msg.Data.OpenInterest, err)
		return model.OpenInterest{}, false
	}
	out := model.OpenInterest{
		Exchange:     Exchange,
		Symbol:       symbol,
		Ts:           msg.Ts,
		OpenInterest: oi,
	}
	if msg.Data.OpenInterestValue != "" {
		if v, err := strconv.ParseFloat(msg.Data.OpenInterestValue, 64); err == nil {
			out.OpenInterestValue = v
		}
	}
	return out, true
}

// NormalizeLiquidations converts a liquidation batch, skipping malformed rows.
func NormalizeLiquidations(symbol string, msg LiquidationMessage) []model.Liquidation {
	out := make([]model.Liquidation, 0, len(msg.Data))
	for _, d := range msg.Data {
		price, err := strconv.ParseFloat(d.Price, 64)
		if err != nil {
			logs.Errorf("parse bybit liquidation price %q, err: %+v", d.Price, err)
			continue
		}
		size, err := strconv.ParseFloat(d.Size, 64)
		if err != nil {
			logs.Errorf("parse bybit liquidation size %q, err: %+v", d.Size, err)
			continue
		}
		ts := d.Ts
		if ts == 0 {
			ts = msg.Ts
		}
		out = append(out, model.Liquidation{
			Exchange: Exchange,
			Symbol:   symbol,
			Ts:       ts,
			Price:    price,
			Quantity: size,
			Side:     enum.Side(d.Side),
		})
	}
	return out
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
