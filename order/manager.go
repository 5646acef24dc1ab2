// Package order keeps one resting bid and one resting ask in sync with the
// engine's latest quote, reusing orders whose price barely moved.
package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"as-maker-go/gateway"
)

// DefaultPriceThreshold is the relative price move below which a resting
// order is left in place rather than replaced.
const DefaultPriceThreshold = 0.0005

// Manager drives order placement through the gateway for a single symbol.
type Manager struct {
	gw             gateway.Gateway
	symbol         string
	baseSize       float64
	priceThreshold float64
	log            *zap.Logger
}

// NewManager builds a lifecycle manager quoting baseSize per side.
func NewManager(gw gateway.Gateway, symbol string, baseSize, priceThreshold float64, log *zap.Logger) *Manager {
	if priceThreshold <= 0 {
		priceThreshold = DefaultPriceThreshold
	}
	return &Manager{
		gw:             gw,
		symbol:         symbol,
		baseSize:       baseSize,
		priceThreshold: priceThreshold,
		log:            log,
	}
}

// UpdateOrders reconciles resting orders against the new bid/ask prices.
// An existing order survives when its price is within priceThreshold of the
// new one; otherwise it is cancelled and replaced. Returns the IDs of the
// resting bid and ask after reconciliation.
func (m *Manager) UpdateOrders(ctx context.Context, bidPrice, askPrice float64) (string, string, error) {
	open, err := m.gw.FetchOpenOrders(ctx, m.symbol)
	if err != nil {
		return "", "", fmt.Errorf("order: fetch open orders: %w", err)
	}

	var bid, ask *gateway.OpenOrder
	for i := range open {
		switch open[i].Side {
		case "buy":
			bid = &open[i]
		case "sell":
			ask = &open[i]
		}
	}

	bidID, err := m.reconcileSide(ctx, "buy", bid, bidPrice)
	if err != nil {
		return "", "", err
	}
	askID, err := m.reconcileSide(ctx, "sell", ask, askPrice)
	if err != nil {
		return bidID, "", err
	}
	return bidID, askID, nil
}

func (m *Manager) reconcileSide(ctx context.Context, side string, existing *gateway.OpenOrder, price float64) (string, error) {
	if existing != nil && existing.Price > 0 {
		diff := abs(existing.Price-price) / existing.Price
		if diff < m.priceThreshold {
			m.log.Debug("keeping resting order",
				zap.String("side", side),
				zap.String("order_id", existing.ID),
				zap.Float64("price_diff_pct", diff))
			return existing.ID, nil
		}
		if err := m.gw.CancelOrder(ctx, m.symbol, existing.ID); err != nil {
			return "", fmt.Errorf("order: cancel %s %s: %w", side, existing.ID, err)
		}
	}

	id, err := m.gw.CreateLimitOrder(ctx, m.symbol, side, m.baseSize, price)
	if err != nil {
		return "", fmt.Errorf("order: place %s: %w", side, err)
	}
	m.log.Info("placed limit order",
		zap.String("side", side),
		zap.String("order_id", id),
		zap.Float64("price", price),
		zap.Float64("size", m.baseSize))
	return id, nil
}

// CancelAll cancels every resting order for the symbol and returns how many
// were cancelled.
func (m *Manager) CancelAll(ctx context.Context) (int, error) {
	open, err := m.gw.FetchOpenOrders(ctx, m.symbol)
	if err != nil {
		return 0, fmt.Errorf("order: fetch open orders: %w", err)
	}
	cancelled := 0
	for _, o := range open {
		if err := m.gw.CancelOrder(ctx, m.symbol, o.ID); err != nil {
			return cancelled, fmt.Errorf("order: cancel %s: %w", o.ID, err)
		}
		cancelled++
	}
	if cancelled > 0 {
		m.log.Info("cancelled all resting orders", zap.Int("count", cancelled))
	}
	return cancelled, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
