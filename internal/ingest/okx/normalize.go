package okx

import (
	"strconv"

	"main/internal/model"
	"main/internal/model/enum"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// BooksMessage is one books push; action "snapshot" seeds, "update" patches.
type BooksMessage struct {
	Action string      `json:"action"`
	Data   []BooksData `json:"data"`
}

type BooksData struct {
	// Levels are [price, size, liquidatedOrders, numOrders].
	Asks  [][4]string `json:"asks"`
	Bids  [][4]string `json:"bids"`
	Ts    string      `json:"ts"`
	SeqID int64       `json:"seqId"`
}

// TradesMessage is one trades push.
type TradesMessage struct {
	Data []TradeData `json:"data"`
}

type TradeData struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Price   string `json:"px"`
	Size    string `json:"sz"`
	Side    string `json:"side"` // "buy" / "sell"
	Ts      string `json:"ts"`
}

// NormalizeBooks converts a books push into book updates.
func NormalizeBooks(symbol string, msg BooksMessage) ([]model.BookUpdate, error) {
	var kind enum.UpdateKind
	switch msg.Action {
	case "snapshot":
		kind = enum.UpdateSnapshot
	case "update":
		kind = enum.UpdateDelta
	default:
		return nil, errors.Errorf("books action: %q", msg.Action)
	}

	out := make([]model.BookUpdate, 0, len(msg.Data))
	for _, d := range msg.Data {
		bids, err := parseLevels(d.Bids)
		if err != nil {
			return nil, errors.Wrap(err, "parse bids")
		}
		asks, err := parseLevels(d.Asks)
		if err != nil {
			return nil, errors.Wrap(err, "parse asks")
		}
		ts, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse ts: %q", d.Ts)
		}
		out = append(out, model.BookUpdate{
			Exchange: Exchange,
			Symbol:   symbol,
			Kind:     kind,
			Ts:       ts,
			Bids:     bids,
			Asks:     asks,
			UpdateID: d.SeqID,
		})
	}
	return out, nil
}

// NormalizeTrades converts a trade batch, skipping malformed rows.
func NormalizeTrades(symbol string, msg TradesMessage) []model.Trade {
	out := make([]model.Trade, 0, len(msg.Data))
	for _, d := range msg.Data {
		price, err := strconv.ParseFloat(d.Price, 64)
		if err != nil {
			logs.Errorf("parse okx trade price %q, err: %+v", d.Price, err)
			continue
		}
		size, err := strconv.ParseFloat(d.Size, 64)
		if err != nil {
			logs.Errorf("parse okx trade size %q, err: %+v", d.Size, err)
			continue
		}
		ts, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			logs.Errorf("parse okx trade ts %q, err: %+v", d.Ts, err)
			continue
		}
		out = append(out, model.Trade{
			Exchange: Exchange,
			Symbol:   symbol,
			Side:     sideOf(d.Side),
			Price:    price,
			Size:     size,
			Ts:       ts,
			TradeID:  d.TradeID,
		})
	}
	return out
}

func sideOf(side string) enum.Side {
	if side == "buy" {
		return enum.SideBuy
	}
	return enum.SideSell
}

func parseLevels(rows [][4]string) ([]model.PriceLevel, error) {
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
