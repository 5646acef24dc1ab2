package gateway

import (
	"context"
	"fmt"
	"sync"

	"as-maker-go/market"
)

// Simulator is a deterministic in-memory Gateway for paper trading and
// tests. It never matches orders; resting orders simply accumulate until
// cancelled.
type Simulator struct {
	mu      sync.Mutex
	bars    market.Snapshot
	ticker  market.Ticker
	base    float64
	quote   float64
	nextID  int
	resting map[string]OpenOrder
}

// NewSimulator seeds the simulator with a bar window, a ticker and balances.
func NewSimulator(bars market.Snapshot, ticker market.Ticker, baseBalance, quoteBalance float64) *Simulator {
	return &Simulator{
		bars:    bars,
		ticker:  ticker,
		base:    baseBalance,
		quote:   quoteBalance,
		resting: make(map[string]OpenOrder),
	}
}

// SetBars replaces the bar window for the next cycle.
func (s *Simulator) SetBars(bars market.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars = bars
}

// SetTicker replaces the top-of-book view.
func (s *Simulator) SetTicker(t market.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticker = t
}

func (s *Simulator) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) (market.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bars := s.bars
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make(market.Snapshot, len(bars))
	copy(out, bars)
	return out, nil
}

func (s *Simulator) FetchTicker(ctx context.Context, symbol string) (market.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker, nil
}

func (s *Simulator) FetchBalances(ctx context.Context, symbol string) (Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Balances{Base: s.base, Quote: s.quote}, nil
}

func (s *Simulator) CreateLimitOrder(ctx context.Context, symbol, side string, amount, price float64) (string, error) {
	if side != "buy" && side != "sell" {
		return "", fmt.Errorf("gateway: invalid order side %q", side)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("SIM-%d", s.nextID)
	s.resting[id] = OpenOrder{ID: id, Side: side, Price: price, Amount: amount}
	return id, nil
}

func (s *Simulator) CancelOrder(ctx context.Context, symbol, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resting[orderID]; !ok {
		return fmt.Errorf("gateway: unknown order %s", orderID)
	}
	delete(s.resting, orderID)
	return nil
}

func (s *Simulator) FetchOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OpenOrder, 0, len(s.resting))
	for _, o := range s.resting {
		out = append(out, o)
	}
	return out, nil
}
