package market

// Ticker holds the top-of-book view for a single symbol. Bid/Ask may be zero
// when the venue only reports the last trade.
type Ticker struct {
	Bid  float64
	Ask  float64
	Last float64
}

// Mid returns (bid+ask)/2 when both sides are present, otherwise the last
// trade price.
func (t Ticker) Mid() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}
	return t.Last
}
