package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"as-maker-go/config"
	"as-maker-go/market"
	"as-maker-go/metrics"
)

// SetPending queues a reloaded config; the tunables are applied at the next
// cycle boundary so a reload never mutates components mid-pipeline. The
// cycle interval itself applies only on restart.
func (e *Engine) SetPending(cfg config.AppConfig) {
	e.pending.Store(&cfg)
}

// applyPending folds a queued config into the live components from the
// engine's own goroutine.
func (e *Engine) applyPending() {
	cfg := e.pending.Swap(nil)
	if cfg == nil {
		return
	}
	e.breakers.PriceChangeThreshold = cfg.Risk.CircuitBreakerPct
	e.volCfg.Window = cfg.Volatility.Window
	e.volCfg.Method = market.VolMethod(cfg.Volatility.Method)
	e.log.Info("applied reloaded config",
		zap.Float64("circuit_breaker_pct", cfg.Risk.CircuitBreakerPct),
		zap.Int("volatility_window", cfg.Volatility.Window))
}

// Run drives cycles at the fixed interval until the context is cancelled,
// then cancels all resting orders before returning. A single bad cycle
// never takes the process down.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.log.Info("starting quoting loop",
		zap.String("symbol", e.symbol),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.applyPending()
		e.cycleSafe(ctx)

		select {
		case <-ctx.Done():
			e.log.Info("shutting down, cancelling open orders")
			// The run context is gone; give the cancel a bounded window.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			e.CancelAll(shutdownCtx)
			cancel()
			return
		case <-ticker.C:
		}
	}
}

// cycleSafe runs one cycle, recovers panics, and records the outcome by
// cause so aborts are distinguishable post-hoc.
func (e *Engine) cycleSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclesTotal.WithLabelValues(metrics.CycleError).Inc()
			e.log.Error("cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	err := e.RunCycle(ctx)
	outcome := outcomeLabel(err)
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()

	switch {
	case err == nil:
	case errors.Is(err, ErrHalted):
		// Already logged with its reason.
	case errors.Is(err, ErrNoMarketData),
		errors.Is(err, ErrNoTicker),
		errors.Is(err, ErrNoBalances),
		errors.Is(err, market.ErrInsufficientHistory):
		e.log.Warn("cycle aborted", zap.String("cause", outcome), zap.Error(err))
	default:
		e.log.Error("cycle failed", zap.Error(err))
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.CycleOK
	case errors.Is(err, ErrHalted):
		return metrics.CycleHalted
	case errors.Is(err, ErrNoMarketData):
		return metrics.CycleNoMarketData
	case errors.Is(err, ErrNoTicker):
		return metrics.CycleNoTicker
	case errors.Is(err, ErrNoBalances):
		return metrics.CycleNoBalances
	case errors.Is(err, market.ErrInsufficientHistory):
		return metrics.CycleInsufficientHistory
	default:
		return metrics.CycleError
	}
}
