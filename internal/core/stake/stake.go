// Package stake sizes bets with fractional Kelly plus risk discounts. The
// edge used here is expected value per unit staked (prob*odds - 1), not the
// probability-difference edge the pick gates use; both gates exist on
// purpose and they are not interchangeable.
package stake

import (
	"fmt"
	"math"

	"github.com/charleschow/edgeline/internal/config"
)

// minReturnsForVolatility is how many settled returns the volatility
// discount needs before it trusts the sample.
const minReturnsForVolatility = 5

// Context carries the risk state a sizing decision depends on.
type Context struct {
	Rules         config.BankrollRules
	RecentReturns []float64 // per-bet returns over the recent window
	PeakBankroll  float64   // rolling bankroll peak, zero when unknown
}

// Decision is a fully explained stake: every multiplier that shaped the
// final number is recorded so the bet row can be audited later.
type Decision struct {
	Stake           float64 `json:"stake"`
	Fraction        float64 `json:"fraction"`
	FullKelly       float64 `json:"full_kelly"`
	EVEdge          float64 `json:"ev_edge"`
	VolatilityMult  float64 `json:"volatility_mult"`
	DrawdownMult    float64 `json:"drawdown_mult"`
	PotentialReturn float64 `json:"potential_return"`
	PotentialProfit float64 `json:"potential_profit"`
	Reason          string  `json:"reason,omitempty"` // set only on zero-stake decisions
}

// Size computes the stake for one bet. Parlays pass their combined
// probability and product odds through the same math.
//
// Order of operations: gates (bankroll floor, minimum edge), full Kelly,
// configured fraction, volatility discount, drawdown discount, bankroll
// percentage cap, minimum-stake bumps, rounding to cents.
func Size(prob, odds, bankroll float64, ctx Context) Decision {
	rules := ctx.Rules
	d := Decision{VolatilityMult: 1, DrawdownMult: 1}

	if bankroll < rules.MinBankroll {
		d.Reason = fmt.Sprintf("bankroll %.2f below floor %.2f", bankroll, rules.MinBankroll)
		return d
	}
	if prob <= 0 || prob >= 1 || odds <= 1 {
		d.Reason = fmt.Sprintf("unusable inputs: prob %.4f, odds %.2f", prob, odds)
		return d
	}

	d.EVEdge = prob*odds - 1
	if d.EVEdge < rules.MinEdgeToBet {
		d.Reason = fmt.Sprintf("edge %.1f%% below minimum %.1f%%", d.EVEdge*100, rules.MinEdgeToBet*100)
		return d
	}

	b := odds - 1
	d.FullKelly = (b*prob - (1 - prob)) / b
	if d.FullKelly <= 0 {
		d.Reason = "no positive expectation"
		return d
	}

	frac := d.FullKelly * rules.KellyFraction
	d.VolatilityMult = volatilityMultiplier(ctx.RecentReturns, rules)
	d.DrawdownMult = drawdownMultiplier(bankroll, ctx.PeakBankroll, rules)
	frac *= d.VolatilityMult * d.DrawdownMult

	stakeAmt := bankroll * frac
	// a strong edge deserves at least a token position
	if minStake := bankroll * 0.005; stakeAmt < minStake && d.EVEdge > 0.05 {
		stakeAmt = minStake
	}
	if stakeAmt < 1.0 {
		stakeAmt = 1.0
	}
	// the hard cap beats the minimum-stake bumps
	maxStake := bankroll * rules.MaxBetPercentage / 100
	if stakeAmt > maxStake {
		stakeAmt = maxStake
	}
	stakeAmt = math.Round(stakeAmt*100) / 100
	if stakeAmt > maxStake {
		stakeAmt = math.Floor(maxStake*100) / 100
	}

	d.Stake = stakeAmt
	d.Fraction = stakeAmt / bankroll
	d.PotentialReturn = math.Round(stakeAmt*odds*100) / 100
	d.PotentialProfit = math.Round(stakeAmt*(odds-1)*100) / 100
	return d
}

// volatilityMultiplier scales stakes down when recent per-bet returns swing
// harder than the configured trigger. Small samples are not trusted.
func volatilityMultiplier(returns []float64, rules config.BankrollRules) float64 {
	if rules.VolatilityTrigger <= 0 || len(returns) < minReturnsForVolatility {
		return 1
	}
	sd := stdev(returns)
	if sd <= rules.VolatilityTrigger {
		return 1
	}
	mult := rules.VolatilityTrigger / sd
	if mult < rules.VolatilityFloor {
		mult = rules.VolatilityFloor
	}
	return mult
}

// drawdownMultiplier scales stakes down proportionally to how far the
// bankroll sits below the trigger fraction of its rolling peak.
func drawdownMultiplier(bankroll, peak float64, rules config.BankrollRules) float64 {
	if peak <= 0 || rules.DrawdownTrigger <= 0 {
		return 1
	}
	threshold := peak * rules.DrawdownTrigger
	if bankroll >= threshold {
		return 1
	}
	mult := bankroll / threshold
	if mult < rules.DrawdownFloor {
		mult = rules.DrawdownFloor
	}
	return mult
}

func stdev(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var ss float64
	for _, x := range xs {
		diff := x - mean
		ss += diff * diff
	}
	return math.Sqrt(ss / n)
}

// FlatStake is the fallback sizing mode: a fixed percentage of bankroll.
func FlatStake(bankroll, percentage float64) float64 {
	if bankroll <= 0 || percentage <= 0 {
		return 0
	}
	return math.Round(bankroll*percentage) / 100
}
