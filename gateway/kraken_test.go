package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "dGVzdC1zZWNyZXQ=" // base64("test-secret")

func testClient(t *testing.T, handler http.HandlerFunc) *KrakenClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewKrakenClient("test-key", testSecret)
	c.BaseURL = srv.URL
	c.HTTPClient = srv.Client()
	return c
}

func TestFetchOHLCV(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "USDTZUSD", r.URL.Query().Get("pair"))
		assert.Equal(t, "5", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"error":[],"result":{
			"USDTZUSD":[
				[1717200300,"1.0002","1.0003","1.0001","1.0002","1.0002","3000.5",12],
				[1717200000,"1.0000","1.0002","0.9999","1.0001","1.0000","5000.1",10]
			],
			"last":1717200300}}`))
	})

	snap, err := c.FetchOHLCV(context.Background(), "USDT/USD", "5m", 0)
	require.NoError(t, err)
	require.Len(t, snap, 2)

	// rows arrive newest-first above; the snapshot is sorted ascending
	assert.True(t, snap[0].Ts.Before(snap[1].Ts))
	assert.Equal(t, time.Unix(1717200000, 0).UTC(), snap[0].Ts)
	assert.Equal(t, 1.0001, snap[0].Close)
	assert.Equal(t, 5000.1, snap[0].Volume)
	assert.Equal(t, 1.0002, snap[1].Close)
	require.NoError(t, snap.Validate())
}

func TestFetchOHLCVTrimsToLimit(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{
			"USDTZUSD":[
				[100,"1","1","1","1.1","1","10",1],
				[200,"1","1","1","1.2","1","20",1],
				[300,"1","1","1","1.3","1","30",1]
			],
			"last":300}}`))
	})

	snap, err := c.FetchOHLCV(context.Background(), "USDT/USD", "5m", 2)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	// keeps the newest bars
	assert.Equal(t, 1.2, snap[0].Close)
	assert.Equal(t, 1.3, snap[1].Close)
}

func TestFetchOHLCVRejectsUnknownTimeframe(t *testing.T) {
	c := NewKrakenClient("", "")
	_, err := c.FetchOHLCV(context.Background(), "USDT/USD", "2h", 10)
	assert.Error(t, err)
}

func TestFetchTicker(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Ticker", r.URL.Path)
		w.Write([]byte(`{"error":[],"result":{"USDTZUSD":{
			"a":["1.00010","148000","148000.000"],
			"b":["1.00000","7500","7500.000"],
			"c":["1.00005","1250.00000"]}}}`))
	})

	ticker, err := c.FetchTicker(context.Background(), "USDT/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0000, ticker.Bid)
	assert.Equal(t, 1.0001, ticker.Ask)
	assert.Equal(t, 1.00005, ticker.Last)
	assert.Equal(t, 1.00005, ticker.Mid())
}

func TestFetchBalancesResolvesAssetCodes(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/private/Balance", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("API-Key"))
		assert.NotEmpty(t, r.Header.Get("API-Sign"))
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("nonce"))
		w.Write([]byte(`{"error":[],"result":{"USDT":"1500.25","ZUSD":"820.10"}}`))
	})

	bal, err := c.FetchBalances(context.Background(), "USDT/USD")
	require.NoError(t, err)
	assert.Equal(t, 1500.25, bal.Base)
	assert.Equal(t, 820.10, bal.Quote, "ZUSD resolves as USD")
}

func TestFetchBalancesBTCAlias(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"XXBT":"0.5","ZUSD":"100"}}`))
	})
	bal, err := c.FetchBalances(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 0.5, bal.Base)
}

func TestFetchBalancesMissingAssetIsZero(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{}}`))
	})
	bal, err := c.FetchBalances(context.Background(), "USDT/USD")
	require.NoError(t, err)
	assert.Zero(t, bal.Base)
	assert.Zero(t, bal.Quote)
}

func TestCreateLimitOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/private/AddOrder", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "USDTZUSD", r.PostForm.Get("pair"))
		assert.Equal(t, "buy", r.PostForm.Get("type"))
		assert.Equal(t, "limit", r.PostForm.Get("ordertype"))
		assert.Equal(t, "0.9995", r.PostForm.Get("price"))
		assert.Equal(t, "5", r.PostForm.Get("volume"))
		w.Write([]byte(`{"error":[],"result":{"txid":["OABC12-XYZ"],"descr":{"order":"buy 5 USDTZUSD @ limit 0.9995"}}}`))
	})

	id, err := c.CreateLimitOrder(context.Background(), "USDT/USD", "buy", 5, 0.9995)
	require.NoError(t, err)
	assert.Equal(t, "OABC12-XYZ", id)
}

func TestCreateLimitOrderRejectsBadSide(t *testing.T) {
	c := NewKrakenClient("", "")
	_, err := c.CreateLimitOrder(context.Background(), "USDT/USD", "hold", 5, 1)
	assert.Error(t, err)
}

func TestKrakenErrorArraySurfaces(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EOrder:Insufficient funds"],"result":null}`))
	})
	_, err := c.CreateLimitOrder(context.Background(), "USDT/USD", "buy", 5, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient funds")
}

func TestCancelOrder(t *testing.T) {
	var gotTxID string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTxID = r.PostForm.Get("txid")
		w.Write([]byte(`{"error":[],"result":{"count":1}}`))
	})
	require.NoError(t, c.CancelOrder(context.Background(), "USDT/USD", "OABC12-XYZ"))
	assert.Equal(t, "OABC12-XYZ", gotTxID)
}

func TestFetchOpenOrders(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"open":{
			"OID2":{"vol":"5.0","descr":{"type":"sell","price":"1.0008"}},
			"OID1":{"vol":"5.0","descr":{"type":"buy","price":"0.9992"}}}}}`))
	})

	orders, err := c.FetchOpenOrders(context.Background(), "USDT/USD")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "OID1", orders[0].ID)
	assert.Equal(t, "buy", orders[0].Side)
	assert.Equal(t, 0.9992, orders[0].Price)
	assert.Equal(t, "OID2", orders[1].ID)
}

func TestHTTPErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.FetchTicker(context.Background(), "USDT/USD")
	assert.Error(t, err)
}

func TestSignRejectsInvalidSecret(t *testing.T) {
	c := NewKrakenClient("key", "not valid base64!!!")
	_, err := c.sign("/0/private/Balance", "1", "nonce=1")
	assert.Error(t, err)
}

func TestSignIsDeterministic(t *testing.T) {
	c := NewKrakenClient("key", base64.StdEncoding.EncodeToString([]byte("secret")))
	a, err := c.sign("/0/private/Balance", "1700000000", "nonce=1700000000")
	require.NoError(t, err)
	b, err := c.sign("/0/private/Balance", "1700000000", "nonce=1700000000")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := c.sign("/0/private/Balance", "1700000001", "nonce=1700000001")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestFormatPair(t *testing.T) {
	assert.Equal(t, "USDTZUSD", FormatPair("USDT/USD"))
	assert.Equal(t, "USDCZUSD", FormatPair("USDC/USD"))
	assert.Equal(t, "XXBTZUSD", FormatPair("BTC/USD"))
	assert.Equal(t, "XETHZUSD", FormatPair("ETH/USD"))
	assert.Equal(t, "SOLUSD", FormatPair("SOL/USD"))
}

func TestSplitPair(t *testing.T) {
	base, quote := SplitPair("USDT/USD")
	assert.Equal(t, "USDT", base)
	assert.Equal(t, "USD", quote)
}

func TestIntervalMinutes(t *testing.T) {
	for tf, want := range map[string]int{"1m": 1, "5m": 5, "15m": 15, "1h": 60, "4h": 240, "1d": 1440} {
		got, err := intervalMinutes(tf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := intervalMinutes("30s")
	assert.Error(t, err)
}
