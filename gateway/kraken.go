package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"as-maker-go/market"
)

// KrakenClient is a minimal REST client for the Kraken spot API. HTTPClient
// is injectable so tests can point it at an httptest server.
type KrakenClient struct {
	BaseURL    string
	APIKey     string
	APISecret  string // base64, as issued by Kraken
	HTTPClient *http.Client
}

// NewKrakenClient returns a client against the public Kraken endpoint with a
// sane request timeout.
func NewKrakenClient(apiKey, apiSecret string) *KrakenClient {
	return &KrakenClient{
		BaseURL:    "https://api.kraken.com",
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// FetchOHLCV pulls up to limit bars for the symbol at the given timeframe.
func (c *KrakenClient) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) (market.Snapshot, error) {
	interval, err := intervalMinutes(timeframe)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("pair", FormatPair(symbol))
	q.Set("interval", strconv.Itoa(interval))
	raw, err := c.public(ctx, "/0/public/OHLC", q)
	if err != nil {
		return nil, err
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("gateway: decode ohlc result: %w", err)
	}
	var rows [][]any
	for key, v := range result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(v, &rows); err != nil {
			return nil, fmt.Errorf("gateway: decode ohlc rows: %w", err)
		}
		break
	}

	snap := make(market.Snapshot, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		snap = append(snap, market.Kline{
			Ts:     time.Unix(int64(asFloat(row[0])), 0).UTC(),
			Open:   asFloat(row[1]),
			High:   asFloat(row[2]),
			Low:    asFloat(row[3]),
			Close:  asFloat(row[4]),
			Volume: asFloat(row[6]),
		})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Ts.Before(snap[j].Ts) })
	if limit > 0 && len(snap) > limit {
		snap = snap[len(snap)-limit:]
	}
	return snap, nil
}

type krakenTickerInfo struct {
	A []string `json:"a"` // ask [price, wholeLotVol, lotVol]
	B []string `json:"b"` // bid
	C []string `json:"c"` // last trade [price, lotVol]
}

// FetchTicker returns the top of book plus last trade price.
func (c *KrakenClient) FetchTicker(ctx context.Context, symbol string) (market.Ticker, error) {
	q := url.Values{}
	q.Set("pair", FormatPair(symbol))
	raw, err := c.public(ctx, "/0/public/Ticker", q)
	if err != nil {
		return market.Ticker{}, err
	}
	var result map[string]krakenTickerInfo
	if err := json.Unmarshal(raw, &result); err != nil {
		return market.Ticker{}, fmt.Errorf("gateway: decode ticker: %w", err)
	}
	for _, info := range result {
		t := market.Ticker{}
		if len(info.B) > 0 {
			t.Bid = parseF(info.B[0])
		}
		if len(info.A) > 0 {
			t.Ask = parseF(info.A[0])
		}
		if len(info.C) > 0 {
			t.Last = parseF(info.C[0])
		}
		return t, nil
	}
	return market.Ticker{}, fmt.Errorf("gateway: ticker result empty for %s", symbol)
}

// FetchBalances returns the free balances of both legs of the symbol.
func (c *KrakenClient) FetchBalances(ctx context.Context, symbol string) (Balances, error) {
	raw, err := c.private(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return Balances{}, err
	}
	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return Balances{}, fmt.Errorf("gateway: decode balance: %w", err)
	}
	base, quote := SplitPair(symbol)
	return Balances{
		Base:  lookupAsset(result, base),
		Quote: lookupAsset(result, quote),
	}, nil
}

type krakenAddOrder struct {
	TxID []string `json:"txid"`
}

// CreateLimitOrder places a limit order and returns the venue order ID.
func (c *KrakenClient) CreateLimitOrder(ctx context.Context, symbol, side string, amount, price float64) (string, error) {
	if side != "buy" && side != "sell" {
		return "", fmt.Errorf("gateway: invalid order side %q", side)
	}
	form := url.Values{}
	form.Set("pair", FormatPair(symbol))
	form.Set("type", side)
	form.Set("ordertype", "limit")
	form.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	form.Set("volume", strconv.FormatFloat(amount, 'f', -1, 64))
	raw, err := c.private(ctx, "/0/private/AddOrder", form)
	if err != nil {
		return "", err
	}
	var result krakenAddOrder
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("gateway: decode add order: %w", err)
	}
	if len(result.TxID) == 0 {
		return "", fmt.Errorf("gateway: add order returned no txid")
	}
	return result.TxID[0], nil
}

// CancelOrder cancels a single resting order by ID.
func (c *KrakenClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	form := url.Values{}
	form.Set("txid", orderID)
	_, err := c.private(ctx, "/0/private/CancelOrder", form)
	return err
}

type krakenOpenOrders struct {
	Open map[string]struct {
		Vol   string `json:"vol"`
		Descr struct {
			Type  string `json:"type"`
			Price string `json:"price"`
		} `json:"descr"`
	} `json:"open"`
}

// FetchOpenOrders lists resting orders. Kraken reports all pairs; the caller
// runs a single pair so no filtering is applied here.
func (c *KrakenClient) FetchOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	raw, err := c.private(ctx, "/0/private/OpenOrders", url.Values{})
	if err != nil {
		return nil, err
	}
	var result krakenOpenOrders
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("gateway: decode open orders: %w", err)
	}
	orders := make([]OpenOrder, 0, len(result.Open))
	for id, o := range result.Open {
		orders = append(orders, OpenOrder{
			ID:     id,
			Side:   o.Descr.Type,
			Price:  parseF(o.Descr.Price),
			Amount: parseF(o.Vol),
		})
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (c *KrakenClient) public(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *KrakenClient) private(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	form.Set("nonce", strconv.FormatInt(time.Now().UnixNano(), 10))
	body := form.Encode()
	sig, err := c.sign(path, form.Get("nonce"), body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.APIKey)
	req.Header.Set("API-Sign", sig)
	return c.do(req)
}

// sign implements the Kraken scheme: HMAC-SHA512 over path + SHA256(nonce +
// post body), keyed with the base64-decoded secret.
func (c *KrakenClient) sign(path, nonce, body string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.APISecret)
	if err != nil {
		return "", fmt.Errorf("gateway: decode api secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *KrakenClient) do(req *http.Request) (json.RawMessage, error) {
	if c.HTTPClient == nil {
		return nil, fmt.Errorf("gateway: http client not set")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway: %s status %d", req.URL.Path, resp.StatusCode)
	}
	var env krakenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	if len(env.Error) > 0 {
		return nil, fmt.Errorf("gateway: kraken error: %s", strings.Join(env.Error, "; "))
	}
	return env.Result, nil
}

// FormatPair converts "USDT/USD" style symbols to Kraken pair codes.
func FormatPair(symbol string) string {
	p := strings.ReplaceAll(symbol, "/", "")
	switch p {
	case "USDTUSD", "USDCUSD":
		return p[:4] + "Z" + p[4:]
	case "BTCUSD":
		return "XXBTZUSD"
	case "ETHUSD":
		return "XETHZUSD"
	}
	return p
}

// SplitPair returns the base and quote legs of a "BASE/QUOTE" symbol.
func SplitPair(symbol string) (string, string) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 {
		return symbol, ""
	}
	return parts[0], parts[1]
}

// lookupAsset resolves Kraken's Z/X-prefixed asset codes.
func lookupAsset(balances map[string]string, asset string) float64 {
	for _, key := range []string{asset, "Z" + asset, "X" + asset} {
		if v, ok := balances[key]; ok {
			return parseF(v)
		}
	}
	if asset == "BTC" {
		if v, ok := balances["XXBT"]; ok {
			return parseF(v)
		}
	}
	return 0
}

func intervalMinutes(timeframe string) (int, error) {
	switch timeframe {
	case "1m":
		return 1, nil
	case "5m":
		return 5, nil
	case "15m":
		return 15, nil
	case "1h":
		return 60, nil
	case "4h":
		return 240, nil
	case "1d":
		return 1440, nil
	}
	return 0, fmt.Errorf("gateway: unsupported timeframe %q", timeframe)
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		return parseF(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return 0
}
