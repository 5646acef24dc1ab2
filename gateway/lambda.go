package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Default arrival rates by asset category, used when order-book estimation
// is unavailable. Stable pairs get the highest rates, which the pricing
// model turns into the tightest baseline spreads.
const (
	lambdaStable  = 50.0
	lambdaMajor   = 15.0
	lambdaMid     = 7.5
	lambdaDefault = 5.0
	lambdaFloor   = 5.0
)

var (
	stablePairs = map[string]bool{"USDT/USD": true, "USDC/USD": true, "BUSD/USD": true, "DAI/USD": true}
	majorPairs  = map[string]bool{"BTC/USD": true, "ETH/USD": true, "XRP/USD": true, "BNB/USD": true, "ADA/USD": true}
	midPairs    = map[string]bool{"SOL/USD": true, "DOT/USD": true, "DOGE/USD": true, "AVAX/USD": true, "LINK/USD": true}
)

// DefaultLambdas returns (lambdaB, lambdaA) for the symbol's category.
func DefaultLambdas(symbol string) (float64, float64) {
	switch {
	case stablePairs[symbol]:
		return lambdaStable, lambdaStable
	case majorPairs[symbol]:
		return lambdaMajor, lambdaMajor
	case midPairs[symbol]:
		return lambdaMid, lambdaMid
	}
	return lambdaDefault, lambdaDefault
}

type depthSample struct {
	ts        time.Time
	bidVolume float64
	askVolume float64
	bidLevels int
	askLevels int
}

type krakenDepth struct {
	Asks [][]any `json:"asks"`
	Bids [][]any `json:"bids"`
}

func (c *KrakenClient) fetchDepth(ctx context.Context, symbol string, count int) (depthSample, error) {
	q := url.Values{}
	q.Set("pair", FormatPair(symbol))
	q.Set("count", fmt.Sprint(count))
	raw, err := c.public(ctx, "/0/public/Depth", q)
	if err != nil {
		return depthSample{}, err
	}
	var result map[string]krakenDepth
	if err := json.Unmarshal(raw, &result); err != nil {
		return depthSample{}, fmt.Errorf("gateway: decode depth: %w", err)
	}
	for _, book := range result {
		s := depthSample{ts: time.Now(), bidLevels: len(book.Bids), askLevels: len(book.Asks)}
		for _, row := range book.Bids {
			if len(row) >= 2 {
				s.bidVolume += asFloat(row[1])
			}
		}
		for _, row := range book.Asks {
			if len(row) >= 2 {
				s.askVolume += asFloat(row[1])
			}
		}
		return s, nil
	}
	return depthSample{}, fmt.Errorf("gateway: depth result empty for %s", symbol)
}

// EstimateLambdas derives (lambdaB, lambdaA) from repeated order-book
// snapshots, blending average depth with the observed volume change rate.
// With fewer than two usable samples it falls back to the category defaults.
func (c *KrakenClient) EstimateLambdas(ctx context.Context, symbol string, numSamples int, interval time.Duration) (float64, float64, error) {
	if numSamples < 2 {
		numSamples = 2
	}
	samples := make([]depthSample, 0, numSamples)
	for i := 0; i < numSamples; i++ {
		s, err := c.fetchDepth(ctx, symbol, 100)
		if err == nil {
			samples = append(samples, s)
		}
		if i < numSamples-1 {
			select {
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	if len(samples) < 2 {
		lb, la := DefaultLambdas(symbol)
		return lb, la, nil
	}

	var bidLevels, askLevels float64
	for _, s := range samples {
		bidLevels += float64(s.bidLevels)
		askLevels += float64(s.askLevels)
	}
	bidLevels /= float64(len(samples))
	askLevels /= float64(len(samples))

	var bidRate, askRate float64
	rates := 0
	for i := 1; i < len(samples); i++ {
		dt := samples[i].ts.Sub(samples[i-1].ts).Seconds()
		if dt <= 0 {
			continue
		}
		bidRate += abs(samples[i].bidVolume-samples[i-1].bidVolume) / dt
		askRate += abs(samples[i].askVolume-samples[i-1].askVolume) / dt
		rates++
	}
	if rates > 0 {
		bidRate /= float64(rates)
		askRate /= float64(rates)
	} else {
		bidRate, askRate = 1.0, 1.0
	}

	lambdaB := bidLevels*0.5 + bidRate*2
	lambdaA := askLevels*0.5 + askRate*2
	if lambdaB < lambdaFloor {
		lambdaB = lambdaFloor
	}
	if lambdaA < lambdaFloor {
		lambdaA = lambdaFloor
	}
	return lambdaB, lambdaA, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
