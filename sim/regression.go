package sim

import (
	"math"

	"github.com/rustyeddy/hedger/hedge"
)

// Shocks are the parallel rate moves, in decimal, the simulated
// effectiveness test runs the items through.
var Shocks = []float64{0.0025, 0.005, -0.0015, 0.01, 0.0075, -0.005, 0.0125, 0.002}

// Band is the accepted dollar-offset range.
const (
	BandLow  = 0.80
	BandHigh = 1.25
	MinR2    = 0.80
)

// Stats is the outcome of one effectiveness test.
type Stats struct {
	Slope       float64
	RSquared    float64
	OffsetRatio float64
	Effective   bool
}

// valueChange is an item's change in value under shock s. Hedged items carry
// a convexity term the hedging side does not, so the fit is never perfect.
func valueChange(it hedge.Item, s float64, hedged bool) float64 {
	d := 1 / (1 + it.Rate)
	dv := it.Notional * s * d
	if hedged {
		dv = -dv + 0.5*it.Notional*s*s*4*d*d
	}
	return dv
}

func series(items []hedge.Item, hedged bool) []float64 {
	out := make([]float64, len(Shocks))
	for k, s := range Shocks {
		for _, it := range items {
			out[k] += valueChange(it, s, hedged)
		}
	}
	return out
}

// Test regresses the hedging items' value changes on the hedged items'.
// Slope and offset ratio are reported as positive numbers when the hedge
// offsets.
func Test(hedged, hedging []hedge.Item) Stats {
	x := series(hedged, true)
	y := series(hedging, false)

	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}

	var st Stats
	if sx != 0 {
		st.OffsetRatio = -sy / sx
	}

	n := float64(len(x))
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx > 0 {
		st.Slope = -cov / vx
	}
	if vx > 0 && vy > 0 {
		st.RSquared = cov * cov / (vx * vy)
	}

	st.Effective = st.OffsetRatio >= BandLow && st.OffsetRatio <= BandHigh && st.RSquared >= MinR2
	return st
}

// Round4 trims a statistic for storage and display.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
