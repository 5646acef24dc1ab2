package market

import (
	"errors"
	"time"
)

// Kline represents one OHLCV bar.
type Kline struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Snapshot is a time-ascending rolling window of bars fetched once per cycle.
type Snapshot []Kline

var ErrUnorderedBars = errors.New("market: bar timestamps not strictly increasing")

// Validate verifies the window is non-empty and strictly time-ascending.
func (s Snapshot) Validate() error {
	if len(s) == 0 {
		return errors.New("market: empty snapshot")
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Ts.After(s[i-1].Ts) {
			return ErrUnorderedBars
		}
	}
	return nil
}

// Closes returns the close series in bar order.
func (s Snapshot) Closes() []float64 {
	out := make([]float64, len(s))
	for i, k := range s {
		out[i] = k.Close
	}
	return out
}

// Volumes returns the volume series in bar order.
func (s Snapshot) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, k := range s {
		out[i] = k.Volume
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty window.
func (s Snapshot) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}
