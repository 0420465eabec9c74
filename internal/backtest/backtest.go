// Package backtest replays resolved history through the pick and stake
// logic day by day, compounding a simulated bankroll. It shares its sample
// shape with the autotuner so both read the same stored history.
package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/autotune"
	"github.com/charleschow/edgeline/internal/core/edge"
	"github.com/charleschow/edgeline/internal/core/stake"
)

// recentWindow is how many settled returns feed the volatility discount
// during replay, mirroring the live sizing path.
const recentWindow = 20

// Point is one day on the equity curve.
type Point struct {
	Date    time.Time `json:"date"`
	Balance float64   `json:"balance"`
}

// Result summarizes one replay.
type Result struct {
	Bets          int     `json:"bets"`
	Wins          int     `json:"wins"`
	TotalStaked   float64 `json:"total_staked"`
	Profit        float64 `json:"profit"`
	ROI           float64 `json:"roi"`      // profit / total staked
	WinRate       float64 `json:"win_rate"`
	FinalBankroll float64 `json:"final_bankroll"`
	MaxDrawdown   float64 `json:"max_drawdown"` // peak-relative fraction
	Sharpe        float64 `json:"sharpe"`       // annualized over daily returns
	Equity        []Point `json:"equity"`
}

// Run replays the sample chronologically under one threshold snapshot.
// Each day's accepted picks are staked as singles against the running
// bankroll; results settle before the next day is evaluated, so the
// volatility and drawdown discounts see exactly what live sizing would.
func Run(samples []autotune.Sample, snap config.Snapshot, initialBankroll float64) Result {
	days := groupByDay(samples)

	bankroll := initialBankroll
	peak := initialBankroll
	res := Result{FinalBankroll: initialBankroll}
	var recentReturns []float64
	var dailyReturns []float64
	maxDD := 0.0

	for _, day := range days {
		var picks []edge.Pick
		predByMatch := make(map[string]autotune.Sample, len(day.samples))
		for _, s := range day.samples {
			predByMatch[s.Match.ID] = s
			picks = append(picks, edge.Evaluate(s.Pred, s.Match, snap.Picks)...)
		}
		selected := edge.Diversify(picks, snap.Picks.MaxPicksPerLeague)

		dayStart := bankroll
		for _, p := range selected {
			dec := stake.Size(p.Prob, p.Odds, bankroll, stake.Context{
				Rules:         snap.Bankroll,
				RecentReturns: recentReturns,
				PeakBankroll:  peak,
			})
			if dec.Stake <= 0 {
				continue
			}

			res.Bets++
			res.TotalStaked += dec.Stake

			s := predByMatch[p.MatchID]
			var ret float64
			if p.Outcome == s.Match.Result.Outcome {
				ret = p.Odds - 1
				res.Wins++
			} else {
				ret = -1
			}
			bankroll += dec.Stake * ret

			recentReturns = append(recentReturns, ret)
			if len(recentReturns) > recentWindow {
				recentReturns = recentReturns[len(recentReturns)-recentWindow:]
			}
		}

		if bankroll > peak {
			peak = bankroll
		}
		if dd := (peak - bankroll) / peak; dd > maxDD {
			maxDD = dd
		}
		if dayStart > 0 {
			dailyReturns = append(dailyReturns, bankroll/dayStart-1)
		}
		res.Equity = append(res.Equity, Point{Date: day.date, Balance: bankroll})
	}

	res.FinalBankroll = bankroll
	res.Profit = bankroll - initialBankroll
	res.MaxDrawdown = maxDD
	if res.TotalStaked > 0 {
		res.ROI = res.Profit / res.TotalStaked
	}
	if res.Bets > 0 {
		res.WinRate = float64(res.Wins) / float64(res.Bets)
	}
	res.Sharpe = sharpe(dailyReturns)
	return res
}

type dayGroup struct {
	date    time.Time
	samples []autotune.Sample
}

// groupByDay buckets resolved samples by calendar day, chronologically.
func groupByDay(samples []autotune.Sample) []dayGroup {
	byDay := make(map[time.Time][]autotune.Sample)
	for _, s := range samples {
		if !s.Match.Resolved() {
			continue
		}
		day := s.Match.Date.UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], s)
	}

	out := make([]dayGroup, 0, len(byDay))
	for day, group := range byDay {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Match.Date.Before(group[j].Match.Date) })
		out = append(out, dayGroup{date: day, samples: group})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

// sharpe annualizes mean/stdev of daily returns at sqrt(365).
func sharpe(rets []float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(rets)-1))
	if sd == 0 {
		return 0
	}
	return math.Sqrt(365) * mean / sd
}
