// Package engine sequences one quoting cycle: market data, breakers,
// volatility, balances, ticker, inventory, pricing, skew adjustment, and the
// hand-off to the order manager. Everything here is synchronous; blocking
// I/O lives behind the gateway.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"as-maker-go/alert"
	"as-maker-go/config"
	"as-maker-go/gateway"
	"as-maker-go/inventory"
	"as-maker-go/market"
	"as-maker-go/metrics"
	"as-maker-go/position"
	"as-maker-go/risk"
	"as-maker-go/strategy/asmm"
)

// Per-cycle abort causes. Each aborts the current cycle only; the loop
// sleeps and retries on the next interval.
var (
	ErrNoMarketData = errors.New("engine: no market data")
	ErrNoTicker     = errors.New("engine: no ticker")
	ErrNoBalances   = errors.New("engine: no balances")
	// ErrHalted means a circuit breaker tripped. Resting orders have already
	// been cancelled; the cycle ends successfully-but-inactive.
	ErrHalted = errors.New("engine: circuit breaker halt")
)

// OrderManager is the lifecycle collaborator consuming final quote prices.
type OrderManager interface {
	UpdateOrders(ctx context.Context, bidPrice, askPrice float64) (string, string, error)
	CancelAll(ctx context.Context) (int, error)
}

// Engine holds explicit references to every component, wired once at
// startup.
type Engine struct {
	gw       gateway.Gateway
	orders   OrderManager
	breakers *risk.Breakers
	inv      *inventory.Manager
	model    *asmm.Model
	tracker  *position.Tracker
	alerts   *alert.Manager
	log      *zap.Logger

	symbol    string
	timeframe string
	volCfg    market.VolConfig

	pending atomic.Pointer[config.AppConfig]
}

// Options carries the per-run knobs the engine reads once per cycle.
type Options struct {
	Symbol    string
	Timeframe string
	VolConfig market.VolConfig
}

// New wires the engine. The tracker and alerts may be nil.
func New(gw gateway.Gateway, orders OrderManager, breakers *risk.Breakers,
	inv *inventory.Manager, model *asmm.Model, tracker *position.Tracker,
	alerts *alert.Manager, log *zap.Logger, opts Options) *Engine {
	return &Engine{
		gw:        gw,
		orders:    orders,
		breakers:  breakers,
		inv:       inv,
		model:     model,
		tracker:   tracker,
		alerts:    alerts,
		log:       log,
		symbol:    opts.Symbol,
		timeframe: opts.Timeframe,
		volCfg:    opts.VolConfig,
	}
}

// RunCycle executes one full pipeline pass. A nil return means quotes were
// emitted; every other outcome is a sentinel (or wraps one) naming the
// abort cause.
func (e *Engine) RunCycle(ctx context.Context) error {
	// Twice the volatility window keeps the realized estimator fed and the
	// breaker window populated.
	snap, err := e.gw.FetchOHLCV(ctx, e.symbol, e.timeframe, e.volCfg.Window*2)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoMarketData, err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMarketData, err)
	}

	if tripped, reason := e.breakers.Evaluate(snap); tripped {
		metrics.BreakerTrips.WithLabelValues(reason).Inc()
		e.log.Warn("circuit breaker tripped, cancelling resting orders",
			zap.String("reason", reason))
		e.alerts.Send(alert.LevelCritical,
			fmt.Sprintf("circuit breaker halt (%s) on %s", reason, e.symbol))
		count, err := e.orders.CancelAll(ctx)
		if err != nil {
			e.log.Error("cancel-all after halt failed", zap.Error(err))
		}
		metrics.OrdersCancelled.Add(float64(count))
		return ErrHalted
	}

	vol, err := market.EstimateVol(snap, e.volCfg)
	if err != nil {
		return err
	}

	bal, err := e.gw.FetchBalances(ctx, e.symbol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoBalances, err)
	}

	ticker, err := e.gw.FetchTicker(ctx, e.symbol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoTicker, err)
	}
	mid := ticker.Mid()
	if mid <= 0 {
		return fmt.Errorf("%w: non-positive mid", ErrNoTicker)
	}

	invPct := e.inv.UpdateInventory(bal.Base, bal.Quote, mid)
	if e.tracker != nil {
		e.tracker.RecordPosition(bal.Base, bal.Quote, mid)
	}
	if !e.inv.IsBalanced() {
		side, amount := e.inv.RebalanceAmount()
		e.log.Warn("inventory beyond hard limit",
			zap.Float64("inventory_pct", invPct),
			zap.String("rebalance_side", string(side)),
			zap.Float64("rebalance_amount", amount))
	}

	// Raw model prices are only the adjustment input; the skewed spreads
	// below are what actually gets quoted.
	rawBid, rawAsk := e.model.Quote(mid, vol, invPct)
	bidSpread, askSpread := mid-rawBid, rawAsk-mid
	adjBid, adjAsk := e.inv.AdjustSpreadsAt(bidSpread, askSpread, invPct)
	finalBid, finalAsk := mid-adjBid, mid+adjAsk

	bidID, askID, err := e.orders.UpdateOrders(ctx, finalBid, finalAsk)
	if err != nil {
		return fmt.Errorf("engine: update orders: %w", err)
	}

	metrics.MidPrice.Set(mid)
	metrics.Volatility.Set(vol)
	metrics.InventoryPct.Set(invPct)
	metrics.BidSpread.Set(adjBid)
	metrics.AskSpread.Set(adjAsk)
	metrics.QuotesPlaced.WithLabelValues("bid").Inc()
	metrics.QuotesPlaced.WithLabelValues("ask").Inc()

	e.log.Info("cycle complete",
		zap.Float64("mid", mid),
		zap.Float64("volatility", vol),
		zap.Float64("inventory_pct", invPct),
		zap.Float64("bid", finalBid),
		zap.Float64("ask", finalAsk),
		zap.String("bid_order", bidID),
		zap.String("ask_order", askID))
	return nil
}

// CancelAll is exposed for shutdown paths.
func (e *Engine) CancelAll(ctx context.Context) {
	count, err := e.orders.CancelAll(ctx)
	if err != nil {
		e.log.Error("cancel-all failed", zap.Error(err))
		return
	}
	metrics.OrdersCancelled.Add(float64(count))
}
