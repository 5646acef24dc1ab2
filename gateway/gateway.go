package gateway

import (
	"context"

	"as-maker-go/market"
)

// Balances holds the free balances of the traded pair.
type Balances struct {
	Base  float64
	Quote float64
}

// OpenOrder is a resting limit order as reported by the venue.
type OpenOrder struct {
	ID     string
	Side   string // "buy" or "sell"
	Price  float64
	Amount float64
}

// Gateway is the market data and execution surface the engine depends on.
// KrakenClient talks to the live venue; Simulator backs tests and paper runs.
type Gateway interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) (market.Snapshot, error)
	FetchTicker(ctx context.Context, symbol string) (market.Ticker, error)
	FetchBalances(ctx context.Context, symbol string) (Balances, error)
	CreateLimitOrder(ctx context.Context, symbol, side string, amount, price float64) (string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	FetchOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
}
