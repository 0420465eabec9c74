// Package autotune searches the pick-criteria grid against recent settled
// history and reports the best-scoring thresholds. It only proposes: callers
// decide whether to persist the winning parameters.
package autotune

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/edge"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// ruinScore marks a combination as unusable: no bets, or a growth factor
// that wiped the simulated bankroll. Nothing scored at ruin is ever picked.
const ruinScore = -999

// Grid is the searched threshold space. Combos enumerate with the last
// dimension varying fastest, and a truncated search keeps the head of that
// enumeration, so dimension order is part of the contract.
type Grid struct {
	MinEdge []float64
	MinProb []float64
	MinOdds []float64
	MaxOdds []float64
}

// DefaultGrid spans the ranges worth searching for a calibrated model
// whose accuracy sits near the high forties.
func DefaultGrid() Grid {
	return Grid{
		MinEdge: []float64{0.02, 0.03, 0.04, 0.05},
		MinProb: []float64{0.40, 0.45, 0.50, 0.52, 0.55},
		MinOdds: []float64{1.50, 1.60, 1.70},
		MaxOdds: []float64{2.50, 3.00, 3.50},
	}
}

// Size is the full combination count before any truncation.
func (g Grid) Size() int {
	return len(g.MinEdge) * len(g.MinProb) * len(g.MinOdds) * len(g.MaxOdds)
}

// Combos materializes up to limit combinations. Fields the grid does not
// search, like the per-league pick cap, are carried over from base.
func (g Grid) Combos(limit int, base config.PickCriteria) []config.PickCriteria {
	size := g.Size()
	if limit > 0 && size > limit {
		size = limit
	}
	combos := make([]config.PickCriteria, 0, size)
	for _, e := range g.MinEdge {
		for _, p := range g.MinProb {
			for _, lo := range g.MinOdds {
				for _, hi := range g.MaxOdds {
					if len(combos) == size {
						return combos
					}
					c := base
					c.MinEdge, c.MinProbability, c.MinOdds, c.MaxOdds = e, p, lo, hi
					combos = append(combos, c)
				}
			}
		}
	}
	return combos
}

// Sample pairs a settled fixture with the model's prediction for it.
// Unresolved fixtures are skipped.
type Sample struct {
	Match sports.Match
	Pred  model.Prediction
}

// Metrics summarize one simulated flat-staking run over the sample.
type Metrics struct {
	ROI        float64 `json:"roi"`
	WinRate    float64 `json:"win_rate"`
	GeoGrowth  float64 `json:"geo_growth"`
	Volatility float64 `json:"volatility"`
	Score      float64 `json:"score"`
	N          int     `json:"n"`
}

// Trial records one evaluated combination.
type Trial struct {
	Criteria config.PickCriteria `json:"criteria"`
	Metrics  Metrics             `json:"metrics"`
}

// Result is the search outcome. Best is nil when no combination produced
// enough bets to trust. Partial means the budget or context cut the search
// short, and Best reflects only what was evaluated.
type Result struct {
	Best        *config.PickCriteria `json:"best,omitempty"`
	BestMetrics Metrics              `json:"best_metrics"`
	Trials      []Trial              `json:"trials"`
	Evaluated   int                  `json:"evaluated"`
	Partial     bool                 `json:"partial"`
	Elapsed     time.Duration        `json:"elapsed"`
}

// Options bound the search. Zero values take the documented defaults.
type Options struct {
	Grid          Grid
	Base          config.PickCriteria
	SampleSize    int           // most recent settled matches kept, default 200
	MaxCombos     int           // default 24
	Budget        time.Duration // wall-clock limit, default 120s
	MinBets       int           // a combo needs strictly more bets than this, default 20
	KellyFraction float64       // growth-simulation fraction, default 0.25
}

func (o Options) withDefaults() Options {
	if len(o.Grid.MinEdge) == 0 {
		o.Grid = DefaultGrid()
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 200
	}
	if o.MaxCombos <= 0 {
		o.MaxCombos = 24
	}
	if o.Budget <= 0 {
		o.Budget = 120 * time.Second
	}
	if o.MinBets <= 0 {
		o.MinBets = 20
	}
	if o.KellyFraction <= 0 {
		o.KellyFraction = 0.25
	}
	return o
}

// Run evaluates grid combinations against the sample until the grid, the
// budget, or the context runs out. The budget is checked between
// combinations, so a slow evaluation overshoots rather than aborts.
func Run(ctx context.Context, samples []Sample, opts Options) Result {
	opts = opts.withDefaults()

	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Match.Resolved() {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Match.Date.After(kept[j].Match.Date)
	})
	if len(kept) > opts.SampleSize {
		kept = kept[:opts.SampleSize]
	}

	combos := opts.Grid.Combos(opts.MaxCombos, opts.Base)
	telemetry.Infof("autotune: evaluating %d combinations over %d settled matches, budget %s",
		len(combos), len(kept), opts.Budget)

	var res Result
	bestScore := float64(ruinScore)
	start := time.Now()
	for _, crit := range combos {
		if time.Since(start) > opts.Budget || ctx.Err() != nil {
			res.Partial = true
			telemetry.Warnf("autotune: stopped early after %d of %d combinations", res.Evaluated, len(combos))
			break
		}

		m := simulate(kept, crit, opts.KellyFraction)
		res.Trials = append(res.Trials, Trial{Criteria: crit, Metrics: m})
		res.Evaluated++
		telemetry.Metrics.AutotuneCombos.Inc()

		if m.Score > bestScore && m.N > opts.MinBets {
			bestScore = m.Score
			c := crit
			res.Best = &c
			res.BestMetrics = m
			telemetry.Infof("autotune: new best score %.3f (roi %.2f%%, win rate %.1f%%, n %d) at edge>=%.2f prob>=%.2f odds %.2f..%.2f",
				m.Score, m.ROI*100, m.WinRate*100, m.N, crit.MinEdge, crit.MinProbability, crit.MinOdds, crit.MaxOdds)
		}
	}
	res.Elapsed = time.Since(start)

	if res.Best == nil {
		telemetry.Warnf("autotune: no combination cleared %d bets over %d trials", opts.MinBets, res.Evaluated)
	}
	return res
}

// simulate replays the pick gates over the sample with flat one-unit
// stakes and scores the outcome. The composite score favors ROI and
// log-growth, discounts volatility, and penalizes thin samples.
func simulate(samples []Sample, crit config.PickCriteria, kellyFraction float64) Metrics {
	var rets []float64
	wins := 0
	for _, s := range samples {
		actual := s.Match.Result.Outcome
		for _, p := range edge.Evaluate(s.Pred, s.Match, crit) {
			if !p.Accepted {
				continue
			}
			if p.Outcome == actual {
				rets = append(rets, p.Odds-1)
				wins++
			} else {
				rets = append(rets, -1)
			}
		}
	}

	n := len(rets)
	if n == 0 {
		return Metrics{ROI: ruinScore, GeoGrowth: ruinScore, Score: ruinScore}
	}

	var sum float64
	for _, r := range rets {
		sum += r
	}
	m := Metrics{
		ROI:        sum / float64(n),
		WinRate:    float64(wins) / float64(n),
		Volatility: volatility(rets),
		N:          n,
	}

	var logSum float64
	for _, r := range rets {
		g := 1 + kellyFraction*r
		if g <= 0 {
			m.GeoGrowth = ruinScore
			m.Score = ruinScore
			return m
		}
		logSum += math.Log(g)
	}
	m.GeoGrowth = logSum / float64(n)

	m.Score = 0.6*m.ROI + 0.3*m.GeoGrowth + 0.1*m.WinRate - 0.05*m.Volatility
	m.Score -= math.Max(0, float64(50-n)) * 0.002
	return m
}

// volatility is the population stdev of per-bet returns. A single return
// falls back to its magnitude.
func volatility(rets []float64) float64 {
	if len(rets) == 1 {
		return math.Abs(rets[0])
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
	return math.Sqrt(ss / float64(len(rets)))
}

// ParamMap renders criteria as the string overrides the parameter store
// keeps, under the keys config.Snapshot.ApplyParams understands.
func ParamMap(c config.PickCriteria) map[string]string {
	return map[string]string{
		"min_edge":        strconv.FormatFloat(c.MinEdge, 'g', -1, 64),
		"min_probability": strconv.FormatFloat(c.MinProbability, 'g', -1, 64),
		"min_odds":        strconv.FormatFloat(c.MinOdds, 'g', -1, 64),
		"max_odds":        strconv.FormatFloat(c.MaxOdds, 'g', -1, 64),
	}
}
