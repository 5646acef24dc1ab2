package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"as-maker-go/market"
)

func TestSimulatorOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(nil, market.Ticker{Bid: 0.9995, Ask: 1.0005}, 100, 100)

	bidID, err := sim.CreateLimitOrder(ctx, "USDT/USD", "buy", 5, 0.9992)
	require.NoError(t, err)
	askID, err := sim.CreateLimitOrder(ctx, "USDT/USD", "sell", 5, 1.0008)
	require.NoError(t, err)
	assert.NotEqual(t, bidID, askID)

	open, err := sim.FetchOpenOrders(ctx, "USDT/USD")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	require.NoError(t, sim.CancelOrder(ctx, "USDT/USD", bidID))
	open, _ = sim.FetchOpenOrders(ctx, "USDT/USD")
	require.Len(t, open, 1)
	assert.Equal(t, askID, open[0].ID)

	assert.Error(t, sim.CancelOrder(ctx, "USDT/USD", bidID), "double cancel")
	_, err = sim.CreateLimitOrder(ctx, "USDT/USD", "hold", 5, 1)
	assert.Error(t, err)
}

func TestSimulatorBarsAndBalances(t *testing.T) {
	ctx := context.Background()
	bars := market.Snapshot{
		{Ts: time.Unix(100, 0), Close: 1.0},
		{Ts: time.Unix(200, 0), Close: 1.1},
		{Ts: time.Unix(300, 0), Close: 1.2},
	}
	sim := NewSimulator(bars, market.Ticker{Last: 1.2}, 50, 75)

	got, err := sim.FetchOHLCV(ctx, "USDT/USD", "5m", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.1, got[0].Close, "limit keeps the newest bars")

	bal, err := sim.FetchBalances(ctx, "USDT/USD")
	require.NoError(t, err)
	assert.Equal(t, 50.0, bal.Base)
	assert.Equal(t, 75.0, bal.Quote)

	sim.SetTicker(market.Ticker{Bid: 1.19, Ask: 1.21})
	ticker, err := sim.FetchTicker(ctx, "USDT/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.2, ticker.Mid())
}
