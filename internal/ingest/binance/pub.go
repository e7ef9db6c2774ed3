package binance

import (
	"context"
	"fmt"
	"strings"

	"main/internal/ingest"
	"main/internal/model/enum"

	"github.com/go-resty/resty/v2"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const (
	_binanceBaseWsUrl   = "wss://fstream.binance.com/ws"
	_binanceBaseRestUrl = "https://fapi.binance.com"

	_binanceSnapshotLimit = "1000"
)

// Exchange is the canonical venue name on the wire.
const Exchange = "binance"

// Feed streams the futures diff depth and aggregate trade channels for one
// symbol, seeding the book with a REST depth snapshot before the deltas.
type Feed struct {
	rest *resty.Client
}

// NewFeed builds a binance feed.
func NewFeed() *Feed {
	return &Feed{
		rest: resty.New().SetBaseURL(_binanceBaseRestUrl),
	}
}

func (f *Feed) Exchange() string {
	return Exchange
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

type eventProbe struct {
	EventType string `json:"e"`
}

// Run connects, snapshots, subscribes and pumps until the connection drops.
func (f *Feed) Run(ctx context.Context, symbol string, pub *ingest.Publisher) error {
	wss := ws.New(ctx, _binanceBaseWsUrl)
	defer wss.Close()

	if err := wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	ch, cancel := wss.Subscribe()
	defer cancel()

	if err := f.subscribe(ctx, wss, symbol); err != nil {
		return err
	}

	snapshot, err := f.FetchSnapshot(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "fetch depth snapshot")
	}
	update, err := NormalizeSnapshot(symbol, snapshot)
	if err != nil {
		return errors.Wrap(err, "normalize depth snapshot")
	}
	if err := pub.PublishBookUpdate(ctx, update); err != nil {
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
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@depth@100ms", strings.ToLower(symbol)),
					fmt.Sprintf("%s@aggTrade", strings.ToLower(symbol)),
				},
				ID: 1,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

func (f *Feed) dispatch(ctx context.Context, symbol string, m ws.Message, pub *ingest.Publisher) {
	probe, ok := ws.ReadMessage[eventProbe](m)
	if !ok {
		return
	}

	switch probe.EventType {
	case "depthUpdate":
		resp, ok := ws.ReadMessage[DepthUpdate](m)
		if !ok {
			return
		}
		update, err := NormalizeDepth(symbol, resp)
		if err != nil {
			logs.Errorf("normalize binance depth, err: %+v", err)
			return
		}
		if err := pub.PublishBookUpdate(ctx, update); err != nil {
			logs.Errorf("publish binance depth, err: %+v", err)
		}
	case "aggTrade":
		resp, ok := ws.ReadMessage[AggTrade](m)
		if !ok {
			return
		}
		trade, err := NormalizeAggTrade(symbol, resp)
		if err != nil {
			logs.Errorf("normalize binance trade, err: %+v", err)
			return
		}
		if err := pub.PublishTrade(ctx, trade); err != nil {
			logs.Errorf("publish binance trade, err: %+v", err)
		}
	}
}

// DepthSnapshot is the REST depth response.
type DepthSnapshot struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	EventTime    int64       `json:"E"`
	Bids         [][2]string `json:"bids"` // [0]price [1]quantity
	Asks         [][2]string `json:"asks"` // [0]price [1]quantity
}

// FetchSnapshot pulls the current depth over REST.
func (f *Feed) FetchSnapshot(ctx context.Context, symbol string) (DepthSnapshot, error) {
	var out DepthSnapshot
	resp, err := f.rest.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.ToUpper(symbol)).
		SetQueryParam("limit", _binanceSnapshotLimit).
		SetResult(&out).
		Get("/fapi/v1/depth")
	if err != nil {
		return out, errors.Wrap(err, "get depth")
	}
	if resp.IsError() {
		return out, errors.Errorf("get depth, status: %s, body: %s", resp.Status(), resp.String())
	}
	return out, nil
}

// sideFromMaker maps the buyer-is-maker flag to the aggressor side.
func sideFromMaker(buyerIsMaker bool) enum.Side {
	if buyerIsMaker {
		return enum.SideSell
	}
	return enum.SideBuy
}
