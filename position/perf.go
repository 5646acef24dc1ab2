package position

import (
	"errors"
	"math"
)

var ErrNotEnoughData = errors.New("position: not enough data")

// SharpeRatio annualizes the mean excess return over its sample standard
// deviation, assuming daily observations.
func SharpeRatio(returns []float64, riskFreeRate float64) (float64, error) {
	if len(returns) < 2 {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for _, r := range returns {
		sum += r - riskFreeRate
	}
	mean := sum / float64(len(returns))
	sq := 0.0
	for _, r := range returns {
		d := (r - riskFreeRate) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return 0, ErrNotEnoughData
	}
	return mean / std * math.Sqrt(365), nil
}

// MaxDrawdown returns the deepest peak-to-trough loss of a value series as
// a non-positive fraction.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := v/peak - 1
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// WinRate returns the fraction of trades with positive PnL, in percent.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, tr := range trades {
		if tr.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// PnL compares current holdings against the initial ones, both marked at
// their respective prices, and also reports the buy-and-hold benchmark.
type PnL struct {
	Absolute     float64
	Percent      float64
	HoldAbsolute float64
}

// ComputePnL values both portfolios in quote currency.
func ComputePnL(initialBase, initialQuote, initialPrice, currentBase, currentQuote, currentPrice float64) PnL {
	initialValue := initialBase*initialPrice + initialQuote
	currentValue := currentBase*currentPrice + currentQuote
	holdValue := initialBase*currentPrice + initialQuote

	p := PnL{
		Absolute:     currentValue - initialValue,
		HoldAbsolute: holdValue - initialValue,
	}
	if initialValue > 0 {
		p.Percent = p.Absolute / initialValue * 100
	}
	return p
}
