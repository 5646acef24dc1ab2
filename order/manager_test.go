package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"as-maker-go/gateway"
	"as-maker-go/market"
)

type fakeGateway struct {
	open      []gateway.OpenOrder
	cancelled []string
	placed    []gateway.OpenOrder
	nextID    int
	failOpen  bool
}

func (f *fakeGateway) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) (market.Snapshot, error) {
	return nil, nil
}

func (f *fakeGateway) FetchTicker(ctx context.Context, symbol string) (market.Ticker, error) {
	return market.Ticker{}, nil
}

func (f *fakeGateway) FetchBalances(ctx context.Context, symbol string) (gateway.Balances, error) {
	return gateway.Balances{}, nil
}

func (f *fakeGateway) CreateLimitOrder(ctx context.Context, symbol, side string, amount, price float64) (string, error) {
	f.nextID++
	id := fmt.Sprintf("ORD-%d", f.nextID)
	f.placed = append(f.placed, gateway.OpenOrder{ID: id, Side: side, Price: price, Amount: amount})
	return id, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeGateway) FetchOpenOrders(ctx context.Context, symbol string) ([]gateway.OpenOrder, error) {
	if f.failOpen {
		return nil, fmt.Errorf("boom")
	}
	return f.open, nil
}

func TestUpdateOrdersPlacesBothSides(t *testing.T) {
	gw := &fakeGateway{}
	m := NewManager(gw, "USDT/USD", 5, 0.0005, zap.NewNop())

	bidID, askID, err := m.UpdateOrders(context.Background(), 0.999, 1.001)
	require.NoError(t, err)
	assert.NotEmpty(t, bidID)
	assert.NotEmpty(t, askID)
	require.Len(t, gw.placed, 2)
	assert.Equal(t, "buy", gw.placed[0].Side)
	assert.Equal(t, 0.999, gw.placed[0].Price)
	assert.Equal(t, "sell", gw.placed[1].Side)
	assert.Equal(t, 5.0, gw.placed[1].Amount)
}

func TestUpdateOrdersReusesCloseOrders(t *testing.T) {
	gw := &fakeGateway{open: []gateway.OpenOrder{
		{ID: "B1", Side: "buy", Price: 1.0000},
		{ID: "A1", Side: "sell", Price: 1.0020},
	}}
	m := NewManager(gw, "USDT/USD", 5, 0.0005, zap.NewNop())

	// both moves below the threshold: nothing cancelled, nothing placed
	bidID, askID, err := m.UpdateOrders(context.Background(), 1.0001, 1.0021)
	require.NoError(t, err)
	assert.Equal(t, "B1", bidID)
	assert.Equal(t, "A1", askID)
	assert.Empty(t, gw.cancelled)
	assert.Empty(t, gw.placed)
}

func TestUpdateOrdersReplacesMovedOrders(t *testing.T) {
	gw := &fakeGateway{open: []gateway.OpenOrder{
		{ID: "B1", Side: "buy", Price: 1.0000},
		{ID: "A1", Side: "sell", Price: 1.0020},
	}}
	m := NewManager(gw, "USDT/USD", 5, 0.0005, zap.NewNop())

	// bid moved 0.5%, ask barely moved: only the bid is replaced
	bidID, askID, err := m.UpdateOrders(context.Background(), 1.0050, 1.0021)
	require.NoError(t, err)
	assert.NotEqual(t, "B1", bidID)
	assert.Equal(t, "A1", askID)
	assert.Equal(t, []string{"B1"}, gw.cancelled)
	require.Len(t, gw.placed, 1)
	assert.Equal(t, 1.0050, gw.placed[0].Price)
}

func TestUpdateOrdersPropagatesGatewayFailure(t *testing.T) {
	gw := &fakeGateway{failOpen: true}
	m := NewManager(gw, "USDT/USD", 5, 0.0005, zap.NewNop())

	_, _, err := m.UpdateOrders(context.Background(), 1, 1.1)
	assert.Error(t, err)
}

func TestCancelAll(t *testing.T) {
	gw := &fakeGateway{open: []gateway.OpenOrder{
		{ID: "B1", Side: "buy", Price: 1},
		{ID: "A1", Side: "sell", Price: 1.1},
	}}
	m := NewManager(gw, "USDT/USD", 5, 0.0005, zap.NewNop())

	count, err := m.CancelAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"B1", "A1"}, gw.cancelled)
}

func TestDefaultPriceThreshold(t *testing.T) {
	m := NewManager(&fakeGateway{}, "USDT/USD", 5, 0, zap.NewNop())
	assert.Equal(t, DefaultPriceThreshold, m.priceThreshold)
}
