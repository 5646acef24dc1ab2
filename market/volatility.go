package market

import (
	"errors"
	"math"
)

// ErrInsufficientHistory signals that the window holds fewer bars than the
// estimator needs. Callers treat it as "no data yet" and skip the cycle.
var ErrInsufficientHistory = errors.New("market: insufficient history for volatility estimate")

// VolMethod selects the volatility estimator.
type VolMethod string

const (
	VolBollinger VolMethod = "bollinger"
	VolRealized  VolMethod = "realized"
)

// VolConfig holds per-run estimator settings.
type VolConfig struct {
	Method    VolMethod
	Window    int
	Annualize bool // sqrt(365) scaling, daily bars only
}

// BollingerVol returns the standard deviation of the last window closes,
// i.e. the band width driver of a Bollinger channel.
func BollingerVol(s Snapshot, window int) (float64, error) {
	closes := s.Closes()
	if window <= 0 || len(closes) < window {
		return 0, ErrInsufficientHistory
	}
	return stddev(closes[len(closes)-window:]), nil
}

// RealizedVol returns sqrt of the sum of squared log returns over the
// trailing window. Needs window+1 closes so every return in the window is
// defined.
func RealizedVol(s Snapshot, window int, annualize bool) (float64, error) {
	closes := s.Closes()
	if window <= 0 || len(closes) < window+1 {
		return 0, ErrInsufficientHistory
	}
	variance := 0.0
	for i := len(closes) - window; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, ErrInsufficientHistory
		}
		r := math.Log(closes[i] / closes[i-1])
		variance += r * r
	}
	vol := math.Sqrt(variance)
	if annualize {
		vol *= math.Sqrt(365)
	}
	return vol, nil
}

// EstimateVol dispatches on the configured method.
func EstimateVol(s Snapshot, cfg VolConfig) (float64, error) {
	switch cfg.Method {
	case VolBollinger:
		return BollingerVol(s, cfg.Window)
	default:
		return RealizedVol(s, cfg.Window, cfg.Annualize)
	}
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	sq := 0.0
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}
