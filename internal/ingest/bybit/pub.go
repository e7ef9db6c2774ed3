package bybit

import (
	"context"
	"fmt"
	"strings"

	"main/internal/ingest"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const _bybitBaseWsUrl = "wss://stream.bybit.com/v5/public/linear"

// Exchange is the canonical venue name on the wire.
const Exchange = "bybit"

// Feed streams the v5 linear public channels for one symbol: trades, the
// 200-level book, 1m klines, tickers for open interest and liquidations.
// The book channel carries its own snapshot, so no REST seeding happens.
type Feed struct{}

// NewFeed builds a bybit feed.
func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Exchange() string {
	return Exchange
}

type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type subscribeResponse struct {
	Success bool   `json:"success"`
	Op      string `json:"op"`
	RetMsg  string `json:"ret_msg"`
}

type topicProbe struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Ts    int64  `json:"ts"`
}

// Run connects, subscribes and pumps until the connection drops.
func (f *Feed) Run(ctx context.Context, symbol string, pub *ingest.Publisher) error {
	wss := ws.New(ctx, _bybitBaseWsUrl)
	defer wss.Close()

	if err := wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	ch, cancel := wss.Subscribe()
	defer cancel()

	if err := f.subscribe(ctx, wss, symbol); err != nil {
		return err
	}

	for {
		select {
		case <-sys.Shutdown():
			return nil
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			f.dispatch(ctx, symbol, m, pub)
		}
	}
}

func (f *Feed) subscribe(ctx context.Context, wss *ws.WebSocket, symbol string) error {
	appendIntoRegister := true
	if err := wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			upper := strings.ToUpper(symbol)
			payload := subscribeRequest{
				Op: "subscribe",
				Args: []string{
					fmt.Sprintf("publicTrade.%s", upper),
					fmt.Sprintf("orderbook.200.%s", upper),
					fmt.Sprintf("kline.1.%s", upper),
					fmt.Sprintf("tickers.%s", upper),
					fmt.Sprintf("allLiquidation.%s", upper),
				},
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.Op != "subscribe" {
				return false, nil
			}

			if !resp.Success {
				return false, errors.Errorf("subscribe and wait, err: %s", resp.RetMsg)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

func (f *Feed) dispatch(ctx context.Context, symbol string, m ws.Message, pub *ingest.Publisher) {
	probe, ok := ws.ReadMessage[topicProbe](m)
	if !ok || probe.Topic == "" {
		return
	}

	switch {
	case strings.HasPrefix(probe.Topic, "publicTrade."):
		resp, ok := ws.ReadMessage[TradeMessage](m)
		if !ok {
			return
		}
		for _, trade := range NormalizeTrades(symbol, resp) {
			if err := pub.PublishTrade(ctx, trade); err != nil {
				logs.Errorf("publish bybit trade, err: %+v", err)
			}
		}
	case strings.HasPrefix(probe.Topic, "orderbook."):
		resp, ok := ws.ReadMessage[OrderbookMessage](m)
		if !ok {
			return
		}
		update, err := NormalizeOrderbook(symbol, resp)
		if err != nil {
			logs.Errorf("normalize bybit orderbook, err: %+v", err)
			return
		}
		if err := pub.PublishBookUpdate(ctx, update); err != nil {
			logs.Errorf("publish bybit orderbook, err: %+v", err)
		}
	case strings.HasPrefix(probe.Topic, "kline."):
		resp, ok := ws.ReadMessage[KlineMessage](m)
		if !ok {
			return
		}
		for _, candle := range NormalizeKlines(symbol, resp) {
			if err := pub.PublishCandle(ctx, candle); err != nil {
				logs.Errorf("publish bybit kline, err: %+v", err)
			}
		}
	case strings.HasPrefix(probe.Topic, "tickers."):
		resp, ok := ws.ReadMessage[TickerMessage](m)
		if !ok {
			return
		}
		oi, ok := NormalizeOpenInterest(symbol, resp)
		if !ok {
			return
		}
		if err := pub.PublishOpenInterest(ctx, oi); err != nil {
			logs.Errorf("publish bybit open interest, err: %+v", err)
		}
	case strings.HasPrefix(probe.Topic, "allLiquidation."):
		resp, ok := ws.ReadMessage[LiquidationMessage](m)
		if !ok {
			return
		}
		for _, liq := range NormalizeLiquidations(symbol, resp) {
			if err := pub.PublishLiquidation(ctx, liq); err != nil {
				logs.Errorf("publish bybit liquidation, err: %+v", err)
			}
		}
	}
}
