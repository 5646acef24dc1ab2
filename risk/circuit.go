package risk

import (
	"math"

	"as-maker-go/market"
)

// Breaker reasons reported by Evaluate, for logging and alerting only.
const (
	ReasonFlashCrash     = "flash_crash"
	ReasonDepeg          = "depeg"
	ReasonAbnormalVolume = "abnormal_volume"
)

// Breakers evaluates halt conditions over the latest market window.
// A tripped breaker is a policy decision, not an error: the engine cancels
// resting quotes and sits the cycle out.
type Breakers struct {
	// PriceChangeThreshold is the fractional drop over CrashWindow bars that
	// counts as a flash crash (0.2 = 20%).
	PriceChangeThreshold float64
	CrashWindow          int
	PegValue             float64
	DepegThreshold       float64
	VolumeZThreshold     float64
	// MinBars gates the aggregate check; with fewer bars Evaluate returns
	// false rather than failing, so a cold start never halts spuriously.
	MinBars int
}

// NewBreakers returns breakers with the stock thresholds around the given
// crash threshold.
func NewBreakers(priceChangeThreshold float64) *Breakers {
	return &Breakers{
		PriceChangeThreshold: priceChangeThreshold,
		CrashWindow:          5,
		PegValue:             1.0,
		DepegThreshold:       0.05,
		VolumeZThreshold:     3.0,
		MinBars:              10,
	}
}

// CheckFlashCrash reports whether price fell more than the threshold over
// the trailing crash window. Fewer closes than the window never fires.
func (b *Breakers) CheckFlashCrash(closes []float64) bool {
	if len(closes) < b.CrashWindow {
		return false
	}
	start := closes[len(closes)-b.CrashWindow]
	if start == 0 {
		return false
	}
	change := (closes[len(closes)-1] - start) / start
	return change < -b.PriceChangeThreshold
}

// CheckDepeg reports whether price deviates from the peg by more than the
// depeg threshold.
func (b *Breakers) CheckDepeg(price float64) bool {
	deviation := math.Abs(price-b.PegValue) / b.PegValue
	return deviation > b.DepegThreshold
}

// CheckAbnormalVolume z-scores the latest volume against the mean and
// stddev of all prior volumes. Needs at least 10 observations and a
// non-zero baseline stddev, otherwise it does not fire.
func (b *Breakers) CheckAbnormalVolume(volumes []float64) bool {
	if len(volumes) < 10 {
		return false
	}
	baseline := volumes[:len(volumes)-1]
	mean, std := meanStd(baseline)
	if std == 0 {
		return false
	}
	z := (volumes[len(volumes)-1] - mean) / std
	return z > b.VolumeZThreshold
}

// Evaluate runs every breaker against the snapshot and returns the halt
// verdict plus the first firing reason. Fewer than MinBars bars suppresses
// the halt entirely (fail-open).
func (b *Breakers) Evaluate(s market.Snapshot) (bool, string) {
	if len(s) < b.MinBars {
		return false, ""
	}
	closes := s.Closes()
	if b.CheckFlashCrash(closes) {
		return true, ReasonFlashCrash
	}
	if b.CheckDepeg(closes[len(closes)-1]) {
		return true, ReasonDepeg
	}
	if b.CheckAbnormalVolume(s.Volumes()) {
		return true, ReasonAbnormalVolume
	}
	return false, ""
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	sq := 0.0
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
