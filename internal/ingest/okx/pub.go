package okx

import (
	"context"
	"strings"

	"main/internal/ingest"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const _okxBaseWsUrl = "wss://ws.okx.com:8443/ws/v5/public"

// Exchange is the canonical venue name on the wire.
const Exchange = "okx"

// Feed streams the public books and trades channels for one symbol. The
// books channel pushes a snapshot first, so no REST seeding happens.
type Feed struct{}

// NewFeed builds an okx feed.
func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Exchange() string {
	return Exchange
}

// InstID maps a canonical concatenated symbol onto the venue's dashed
// instrument id, e.g. BTCUSDT becomes BTC-USDT.
func InstID(symbol string) string {
	upper := strings.ToUpper(symbol)
	if strings.Contains(upper, "-") {
		return upper
	}
	for _, quote := range []string{"USDT", "USDC", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			return upper[:len(upper)-len(quote)] + "-" + quote
		}
	}
	return upper
}

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeResponse struct {
	Event string       `json:"event"`
	Arg   subscribeArg `json:"arg"`
	Code  string       `json:"code"`
	Msg   string       `json:"msg"`
}

type channelProbe struct {
	Arg subscribeArg `json:"arg"`
}

// Run connects, subscribes and pumps until the connection drops.
func (f *Feed) Run(ctx context.Context, symbol string, pub *ingest.Publisher) error {
	wss := ws.New(ctx, _okxBaseWsUrl)
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
	instID := InstID(symbol)
	appendIntoRegister := true
	if err := wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Op: "subscribe",
				Args: []subscribeArg{
					{Channel: "books", InstID: instID},
					{Channel: "trades", InstID: instID},
				},
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil {
				return false, nil
			}

			switch resp.Event {
			case "error":
				return false, errors.Errorf("subscribe and wait, code: %s, err: %s", resp.Code, resp.Msg)
			case "subscribe":
				return true, nil
			default:
				return false, nil
			}
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

func (f *Feed) dispatch(ctx context.Context, symbol string, m ws.Message, pub *ingest.Publisher) {
	probe, ok := ws.ReadMessage[channelProbe](m)
	if !ok {
		return
	}

	switch probe.Arg.Channel {
	case "books":
		resp, ok := ws.ReadMessage[BooksMessage](m)
		if !ok {
			return
		}
		updates, err := NormalizeBooks(symbol, resp)
		if err != nil {
			logs.Errorf("normalize okx books, err: %+v", err)
			return
		}
		for _, update := range updates {
			if err := pub.PublishBookUpdate(ctx, update); err != nil {
				logs.Errorf("publish okx books, err: %+v", err)
			}
		}
	case "trades":
		resp, ok := ws.ReadMessage[TradesMessage](m)
		if !ok {
			return
		}
		for _, trade := range NormalizeTrades(symbol, resp) {
			if err := pub.PublishTrade(ctx, trade); err != nil {
				logs.Errorf("publish okx trade, err: %+v", err)
			}
		}
	}
}
