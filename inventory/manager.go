package inventory

import (
	"errors"
	"math"
)

// Side is the advisory rebalance direction.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// factorCap limits how hard spreads are skewed so a quote always survives.
const factorCap = 0.8

// Manager converts balances into a signed inventory ratio in [-1,1] and
// skews spreads to pull holdings back toward 50/50 by value. It is the only
// component carrying state across cycles; the engine is its single mutator.
type Manager struct {
	maxInventoryPct float64
	skewThreshold   float64

	currentInventory float64
	baseBalance      float64
}

// NewManager validates the skew band eagerly: an inverted band would divide
// by zero mid-cycle, so it refuses to construct instead.
func NewManager(maxInventoryPct, skewThreshold float64) (*Manager, error) {
	if maxInventoryPct <= 0 {
		return nil, errors.New("inventory: maxInventoryPct must be > 0")
	}
	if skewThreshold < 0 || skewThreshold >= maxInventoryPct {
		return nil, errors.New("inventory: require 0 <= skewThreshold < maxInventoryPct")
	}
	return &Manager{
		maxInventoryPct: maxInventoryPct,
		skewThreshold:   skewThreshold,
	}, nil
}

// UpdateInventory recomputes the inventory ratio from fresh balances.
// A non-positive portfolio value maps to zero inventory.
func (m *Manager) UpdateInventory(baseBalance, quoteBalance, midPrice float64) float64 {
	baseValue := baseBalance * midPrice
	portfolioValue := baseValue + quoteBalance
	if portfolioValue > 0 {
		m.currentInventory = 2*baseValue/portfolioValue - 1
	} else {
		m.currentInventory = 0
	}
	m.baseBalance = baseBalance
	return m.currentInventory
}

// Current returns the last computed inventory ratio.
func (m *Manager) Current() float64 {
	return m.currentInventory
}

// AdjustSpreads skews the model spreads using the stored inventory ratio.
func (m *Manager) AdjustSpreads(bidSpread, askSpread float64) (float64, float64) {
	return m.AdjustSpreadsAt(bidSpread, askSpread, m.currentInventory)
}

// AdjustSpreadsAt skews the model spreads for an explicit inventory ratio.
// Inside the dead zone the spreads pass through untouched. Beyond it the
// side that rebalances narrows by up to 80% while the opposite side widens
// by at most 40%, and both are floored at 10% of the tighter input spread.
func (m *Manager) AdjustSpreadsAt(bidSpread, askSpread, inventoryPct float64) (float64, float64) {
	if math.Abs(inventoryPct) <= m.skewThreshold {
		return bidSpread, askSpread
	}

	factor := (math.Abs(inventoryPct) - m.skewThreshold) / (m.maxInventoryPct - m.skewThreshold)
	if factor < 0 {
		factor = 0
	}
	if factor > factorCap {
		factor = factorCap
	}

	var adjBid, adjAsk float64
	if inventoryPct > 0 {
		// Long base: quote the ask tighter to sell it off, back the bid away.
		adjBid = bidSpread * (1 + 0.5*factor)
		adjAsk = askSpread * math.Max(0.2, 1-factor)
	} else {
		// Long quote: quote the bid tighter to buy base, back the ask away.
		adjBid = bidSpread * math.Max(0.2, 1-factor)
		adjAsk = askSpread * (1 + 0.5*factor)
	}

	floor := 0.1 * math.Min(bidSpread, askSpread)
	return math.Max(adjBid, floor), math.Max(adjAsk, floor)
}

// IsBalanced reports whether inventory sits within the hard limit.
func (m *Manager) IsBalanced() bool {
	return math.Abs(m.currentInventory) <= m.maxInventoryPct
}

// RebalanceAmount suggests the trade that would bring inventory back inside
// the dead zone. Advisory only; nothing here places orders.
func (m *Manager) RebalanceAmount() (Side, float64) {
	if math.Abs(m.currentInventory) <= m.skewThreshold {
		return SideNone, 0
	}
	excess := (math.Abs(m.currentInventory) - m.skewThreshold) * m.baseBalance
	if m.currentInventory > 0 {
		return SideSell, excess
	}
	return SideBuy, excess
}
