package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"as-maker-go/market"
)

// TickerStream subscribes to Kraken's public ticker channel and pushes every
// update into a callback. Optional: the engine works fine on REST polling
// alone; the stream only freshens the mid between cycles.
type TickerStream struct {
	URL    string
	Pair   string // websocket pair name, e.g. "USDT/USD"
	Log    *zap.Logger
	OnTick func(market.Ticker)

	dial func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewTickerStream returns a stream against the public Kraken websocket.
func NewTickerStream(pair string, log *zap.Logger, onTick func(market.Ticker)) *TickerStream {
	return &TickerStream{
		URL:    "wss://ws.kraken.com",
		Pair:   pair,
		Log:    log,
		OnTick: onTick,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

type wsSubscribe struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

// Run connects, subscribes and pumps updates until the context is cancelled,
// reconnecting with a flat backoff on any read or dial failure.
func (s *TickerStream) Run(ctx context.Context) {
	for {
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			s.Log.Warn("ticker stream disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *TickerStream) runOnce(ctx context.Context) error {
	conn, err := s.dial(ctx, s.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := wsSubscribe{Event: "subscribe", Pair: []string{s.Pair}}
	sub.Subscription.Name = "ticker"
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	// The watcher lives no longer than this connection; done releases it
	// when the read loop exits on its own.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if t, ok := parseTickerMessage(msg); ok && s.OnTick != nil {
			s.OnTick(t)
		}
	}
}

// Elements are mixed strings and numbers on the wire (price is a string,
// the whole-lot volume a bare int), hence []any.
type wsTickerPayload struct {
	A []any `json:"a"`
	B []any `json:"b"`
	C []any `json:"c"`
}

// parseTickerMessage decodes the array-framed ticker updates and ignores
// event/heartbeat objects.
func parseTickerMessage(msg []byte) (market.Ticker, bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(msg, &frame); err != nil || len(frame) < 4 {
		return market.Ticker{}, false
	}
	var channel string
	if err := json.Unmarshal(frame[2], &channel); err != nil || channel != "ticker" {
		return market.Ticker{}, false
	}
	var payload wsTickerPayload
	if err := json.Unmarshal(frame[1], &payload); err != nil {
		return market.Ticker{}, false
	}
	t := market.Ticker{}
	if len(payload.B) > 0 {
		t.Bid = asFloat(payload.B[0])
	}
	if len(payload.A) > 0 {
		t.Ask = asFloat(payload.A[0])
	}
	if len(payload.C) > 0 {
		t.Last = asFloat(payload.C[0])
	}
	return t, t.Bid > 0 || t.Ask > 0 || t.Last > 0
}
