// Package position records per-cycle portfolio snapshots and executed
// trades, and derives simple performance statistics from them. Everything is
// in-memory and advisory; nothing here feeds back into pricing.
package position

import "time"

// Record is one portfolio snapshot taken after the balances fetch.
type Record struct {
	Ts           time.Time
	BaseBalance  float64
	QuoteBalance float64
	MidPrice     float64
	BaseValue    float64
	TotalValue   float64
	InventoryPct float64 // base fraction of portfolio value, [0,1]
}

// Trade is one executed fill as reported back by the venue.
type Trade struct {
	Ts      time.Time
	OrderID string
	Side    string
	Price   float64
	Amount  float64
	PnL     float64
}

// Tracker accumulates history for the lifetime of the process.
type Tracker struct {
	records []Record
	trades  []Trade
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// RecordPosition appends a snapshot of the current holdings.
func (t *Tracker) RecordPosition(baseBalance, quoteBalance, midPrice float64) Record {
	baseValue := baseBalance * midPrice
	total := baseValue + quoteBalance
	invPct := 0.0
	if total > 0 {
		invPct = baseValue / total
	}
	r := Record{
		Ts:           t.now(),
		BaseBalance:  baseBalance,
		QuoteBalance: quoteBalance,
		MidPrice:     midPrice,
		BaseValue:    baseValue,
		TotalValue:   total,
		InventoryPct: invPct,
	}
	t.records = append(t.records, r)
	return r
}

// RecordTrade appends an executed fill.
func (t *Tracker) RecordTrade(orderID, side string, price, amount, pnl float64) {
	t.trades = append(t.trades, Trade{
		Ts:      t.now(),
		OrderID: orderID,
		Side:    side,
		Price:   price,
		Amount:  amount,
		PnL:     pnl,
	})
}

// Positions returns the recorded snapshots in order.
func (t *Tracker) Positions() []Record {
	return t.records
}

// Trades returns the recorded fills in order.
func (t *Tracker) Trades() []Trade {
	return t.trades
}

// Values returns the portfolio value series.
func (t *Tracker) Values() []float64 {
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = r.TotalValue
	}
	return out
}

// Returns computes the simple return between consecutive snapshots.
func (t *Tracker) Returns() []float64 {
	if len(t.records) < 2 {
		return nil
	}
	out := make([]float64, 0, len(t.records)-1)
	for i := 1; i < len(t.records); i++ {
		prev := t.records[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		out = append(out, t.records[i].TotalValue/prev-1)
	}
	return out
}
