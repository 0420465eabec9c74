// Package market holds the price math shared by features, picks, and the
// canonical odds table: implied probabilities, overround, vig removal.
package market

import "github.com/charleschow/edgeline/internal/core/sports"

// Implied returns the probability a decimal price embeds, before the
// bookmaker's margin is removed. Zero for prices at or below 1.0.
func Implied(odds float64) float64 {
	if odds <= 1.0 {
		return 0
	}
	return 1.0 / odds
}

// Overround is the bookmaker margin: sum of implied probabilities across the
// offered outcomes minus 1.
func Overround(o sports.MarketOdds) float64 {
	total := 0.0
	for _, out := range o.Outcomes() {
		total += Implied(o.For(out))
	}
	return total - 1.0
}

// RemoveVig2 converts two-way decimal odds to fair probabilities
// by stripping the bookmaker's overround.
func RemoveVig2(a, b float64) (float64, float64) {
	rawA := 1.0 / a
	rawB := 1.0 / b
	total := rawA + rawB
	return rawA / total, rawB / total
}

// RemoveVig3 converts three-way decimal odds to fair probabilities.
func RemoveVig3(a, b, c float64) (float64, float64, float64) {
	rawA := 1.0 / a
	rawB := 1.0 / b
	rawC := 1.0 / c
	total := rawA + rawB + rawC
	return rawA / total, rawB / total, rawC / total
}

// Canonical carries the de-margined view of one match's win market,
// the shape persisted to the canonical odds table.
type Canonical struct {
	Home   float64
	Draw   float64 // zero for two-way markets
	Away   float64
	Margin float64
}

// Demargin normalizes a quoted market into fair probabilities plus the
// margin that was stripped.
func Demargin(o sports.MarketOdds) Canonical {
	margin := Overround(o)
	if o.ThreeWay() {
		h, d, a := RemoveVig3(o.HomeWin, o.Draw, o.AwayWin)
		return Canonical{Home: h, Draw: d, Away: a, Margin: margin}
	}
	h, a := RemoveVig2(o.HomeWin, o.AwayWin)
	return Canonical{Home: h, Away: a, Margin: margin}
}
