// Package metrics exposes Prometheus collectors for the quoting loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cycle outcome labels.
const (
	CycleOK                  = "ok"
	CycleNoMarketData        = "no_market_data"
	CycleNoTicker            = "no_ticker"
	CycleNoBalances          = "no_balances"
	CycleInsufficientHistory = "insufficient_history"
	CycleHalted              = "halted"
	CycleError               = "error"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_cycles_total",
		Help: "Trading cycles by outcome",
	}, []string{"outcome"})

	BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_circuit_breaker_trips_total",
		Help: "Circuit breaker trips by reason",
	}, []string{"reason"})

	QuotesPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_quotes_placed_total",
		Help: "Quotes handed to the order manager, by side",
	}, []string{"side"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_orders_cancelled_total",
		Help: "Resting orders cancelled (halt or shutdown)",
	})

	InventoryPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_inventory_pct",
		Help: "Signed inventory ratio in [-1,1]",
	})

	Volatility = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_volatility",
		Help: "Latest volatility estimate",
	})

	MidPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_mid_price",
		Help: "Mid price used for the latest quote",
	})

	BidSpread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_bid_spread",
		Help: "Final quoted bid spread after inventory adjustment",
	})

	AskSpread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_ask_spread",
		Help: "Final quoted ask spread after inventory adjustment",
	})
)

// Serve exposes /metrics on addr in the background. A listen failure is not
// fatal to the quoting loop, but it must reach the operator's log.
func Serve(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
