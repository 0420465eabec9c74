// Package drift compares recent feature and performance windows against a
// baseline and flags staleness. Reports are advisory: nothing here swaps a
// model, that stays an explicit operator step.
package drift

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Config bounds the checks. Zero values take the documented defaults.
type Config struct {
	PValueThreshold float64 // feature drift when p < threshold, default 0.05
	ROIMargin       float64 // performance drift when recent < baseline - margin, default 0.05
	MinSamples      int     // per side per feature, default 20
}

func (c Config) withDefaults() Config {
	if c.PValueThreshold <= 0 {
		c.PValueThreshold = 0.05
	}
	if c.ROIMargin <= 0 {
		c.ROIMargin = 0.05
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 20
	}
	return c
}

// FeatureReport is the two-sample comparison of one feature column.
type FeatureReport struct {
	Feature   string  `json:"feature"`
	Statistic float64 `json:"ks_statistic"` // sup distance between the empirical CDFs
	PValue    float64 `json:"p_value"`
	Drifted   bool    `json:"drifted"`
	BaselineN int     `json:"baseline_n"`
	RecentN   int     `json:"recent_n"`
}

// Report is one drift check run.
type Report struct {
	Features    []FeatureReport `json:"features"`
	Skipped     []string        `json:"skipped,omitempty"` // thin columns, not judged
	DriftedN    int             `json:"drifted_n"`
	ROIBaseline float64         `json:"roi_baseline"`
	ROIRecent   float64         `json:"roi_recent"`
	ROIDrifted  bool            `json:"roi_drifted"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// Drifted reports whether anything tripped.
func (r Report) Drifted() bool { return r.DriftedN > 0 || r.ROIDrifted }

// Summary renders one line for logs and notifications.
func (r Report) Summary() string {
	worst := ""
	worstP := 2.0
	for _, f := range r.Features {
		if f.Drifted && f.PValue < worstP {
			worst, worstP = f.Feature, f.PValue
		}
	}
	s := fmt.Sprintf("drift: %d/%d features flagged", r.DriftedN, len(r.Features))
	if worst != "" {
		s += fmt.Sprintf(" (worst %s p=%.4f)", worst, worstP)
	}
	s += fmt.Sprintf(", roi %.4f vs baseline %.4f", r.ROIRecent, r.ROIBaseline)
	if r.ROIDrifted {
		s += " (performance drift)"
	}
	return s
}

// Check runs both drift checks: a per-feature two-sample Kolmogorov-Smirnov
// test between baseline and recent columns, and a rolling ROI comparison.
// Feature columns missing from either window, or too thin to judge, are
// listed as skipped.
func Check(baseline, recent map[string][]float64, roiBaseline, roiRecent float64, cfg Config) Report {
	cfg = cfg.withDefaults()
	rep := Report{
		ROIBaseline: roiBaseline,
		ROIRecent:   roiRecent,
		ROIDrifted:  roiRecent < roiBaseline-cfg.ROIMargin,
		CheckedAt:   time.Now().UTC(),
	}

	names := make([]string, 0, len(baseline))
	for name := range baseline {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base := baseline[name]
		rec := recent[name]
		if len(base) < cfg.MinSamples || len(rec) < cfg.MinSamples {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		d := ksStatistic(base, rec)
		p := ksPValue(d, len(base), len(rec))
		fr := FeatureReport{
			Feature:   name,
			Statistic: d,
			PValue:    p,
			Drifted:   p < cfg.PValueThreshold,
			BaselineN: len(base),
			RecentN:   len(rec),
		}
		if fr.Drifted {
			rep.DriftedN++
		}
		rep.Features = append(rep.Features, fr)
	}
	return rep
}

// ksStatistic is the two-sample KS statistic: the largest vertical distance
// between the two empirical CDFs, ties consumed from both sides at once.
func ksStatistic(a, b []float64) float64 {
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	n := float64(len(x))
	m := float64(len(y))
	var d float64
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		v := math.Min(x[i], y[j])
		for i < len(x) && x[i] <= v {
			i++
		}
		for j < len(y) && y[j] <= v {
			j++
		}
		if diff := math.Abs(float64(i)/n - float64(j)/m); diff > d {
			d = diff
		}
	}
	return d
}

// ksPValue is the asymptotic two-sided p-value for the two-sample statistic,
// using the effective sample size n*m/(n+m) and the small-sample correction
// sqrt(ne) + 0.12 + 0.11/sqrt(ne).
func ksPValue(d float64, n, m int) float64 {
	if d <= 0 {
		return 1
	}
	ne := float64(n) * float64(m) / float64(n+m)
	sqrtNe := math.Sqrt(ne)
	return ksSurvival((sqrtNe + 0.12 + 0.11/sqrtNe) * d)
}

// ksSurvival evaluates Q(lambda) = 2 sum_{k>=1} (-1)^{k-1} exp(-2 k^2 lambda^2),
// the Kolmogorov distribution's survival function. The alternating series
// converges fast for any lambda worth flagging; if it has not settled after
// the iteration cap the test is treated as inconclusive and returns 1.
func ksSurvival(lambda float64) float64 {
	if lambda < 1e-12 {
		return 1
	}
	a2 := -2 * lambda * lambda
	var sum, prevTerm float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * 2 * math.Exp(a2*float64(k*k))
		sum += term
		abs := math.Abs(term)
		if abs <= 1e-3*prevTerm || abs <= 1e-8*math.Abs(sum) {
			return clampUnit(sum)
		}
		prevTerm = abs
		sign = -sign
	}
	return 1
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
