// Package asmm implements the simplified Avellaneda-Stoikov quoting model:
// a closed-form half-spread from order arrival intensity plus a quadratic
// inventory-risk penalty.
package asmm

import (
	"errors"
	"math"
)

// Model holds the risk-aversion and arrival-rate parameters. Immutable for
// a run; rebuilt at startup when fresh lambda estimates are available.
type Model struct {
	gamma   float64
	lambdaB float64
	lambdaA float64
}

// New rejects non-positive parameters so the spread formulas can never
// divide by zero at quote time.
func New(gamma, lambdaB, lambdaA float64) (*Model, error) {
	if gamma <= 0 {
		return nil, errors.New("asmm: gamma must be > 0")
	}
	if lambdaB <= 0 || lambdaA <= 0 {
		return nil, errors.New("asmm: arrival rates must be > 0")
	}
	return &Model{gamma: gamma, lambdaB: lambdaB, lambdaA: lambdaA}, nil
}

// BidSpread computes δ_bid = (1/γ)·ln(1+γ/λ_b) + ½·γ·σ²·(q+1)².
// The (q+1)² term prices buying less competitively the longer base we are.
func (m *Model) BidSpread(volatility, inventory float64) float64 {
	base := (1 / m.gamma) * math.Log(1+m.gamma/m.lambdaB)
	penalty := 0.5 * m.gamma * volatility * volatility * (inventory + 1) * (inventory + 1)
	return base + penalty
}

// AskSpread computes δ_ask = (1/γ)·ln(1+γ/λ_a) + ½·γ·σ²·(q-1)².
func (m *Model) AskSpread(volatility, inventory float64) float64 {
	base := (1 / m.gamma) * math.Log(1+m.gamma/m.lambdaA)
	penalty := 0.5 * m.gamma * volatility * volatility * (inventory - 1) * (inventory - 1)
	return base + penalty
}

// Quote returns raw bid/ask prices around mid. The engine treats these only
// as input to the inventory skew adjustment, never as the final quote.
func (m *Model) Quote(midPrice, volatility, inventory float64) (bid, ask float64) {
	bid = midPrice - m.BidSpread(volatility, inventory)
	ask = midPrice + m.AskSpread(volatility, inventory)
	return bid, ask
}

// Lambdas returns the arrival rates the model was built with.
func (m *Model) Lambdas() (lambdaB, lambdaA float64) {
	return m.lambdaB, m.lambdaA
}
