package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLambdasByCategory(t *testing.T) {
	cases := []struct {
		symbol string
		want   float64
	}{
		{"USDT/USD", 50.0},
		{"USDC/USD", 50.0},
		{"BTC/USD", 15.0},
		{"ETH/USD", 15.0},
		{"SOL/USD", 7.5},
		{"SHIB/USD", 5.0},
	}
	for _, tc := range cases {
		lb, la := DefaultLambdas(tc.symbol)
		assert.Equal(t, tc.want, lb, tc.symbol)
		assert.Equal(t, tc.want, la, tc.symbol)
	}
}

func TestEstimateLambdasAppliesFloor(t *testing.T) {
	// Four levels a side with unchanging volume: 4*0.5 + 0 = 2, under the
	// floor of 5.
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Depth", r.URL.Path)
		w.Write([]byte(`{"error":[],"result":{"USDTZUSD":{
			"bids":[["0.9999","10",1],["0.9998","10",1],["0.9997","10",1],["0.9996","10",1]],
			"asks":[["1.0001","10",1],["1.0002","10",1],["1.0003","10",1],["1.0004","10",1]]}}}`))
	})

	lb, la, err := c.EstimateLambdas(context.Background(), "USDT/USD", 2, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5.0, lb)
	assert.Equal(t, 5.0, la)
}

func TestEstimateLambdasBlendsDepthLevels(t *testing.T) {
	// 20 levels a side with flat volume: 20*0.5 = 10, above the floor.
	rows := `["1.0","10",1]`
	for i := 0; i < 19; i++ {
		rows += `,["1.0","10",1]`
	}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"USDTZUSD":{"bids":[` + rows + `],"asks":[` + rows + `]}}}`))
	})

	lb, la, err := c.EstimateLambdas(context.Background(), "USDT/USD", 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 10.0, lb)
	assert.Equal(t, 10.0, la)
}

func TestEstimateLambdasFallsBackToDefaults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	lb, la, err := c.EstimateLambdas(context.Background(), "USDT/USD", 2, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 50.0, lb)
	assert.Equal(t, 50.0, la)
}

func TestEstimateLambdasHonorsCancellation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"USDTZUSD":{"bids":[],"asks":[]}}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.EstimateLambdas(ctx, "USDT/USD", 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
