package edge

import (
	"fmt"

	"github.com/charleschow/edgeline/internal/config"
)

// Parlay is a leg set priced as a single bet. Legs are treated as
// independent, so CombinedProb is the plain product; league diversification
// upstream keeps the correlation this ignores small.
type Parlay struct {
	Picks        []Pick  `json:"picks"`
	TotalOdds    float64 `json:"total_odds"`
	CombinedProb float64 `json:"combined_probability"`
	Edge         float64 `json:"edge"`
	EV           float64 `json:"expected_value"` // expected profit per 100 staked
	Score        float64 `json:"score"`
}

// Compose prices a leg set: product odds, product probability, parlay edge
// against the product price, and the selection score.
func Compose(picks []Pick) Parlay {
	totalOdds := 1.0
	combined := 1.0
	for _, p := range picks {
		totalOdds *= p.Odds
		combined *= p.Prob
	}
	ed := combined - 1.0/totalOdds
	ev := combined*100*(totalOdds-1) - (1-combined)*100
	return Parlay{
		Picks:        picks,
		TotalOdds:    totalOdds,
		CombinedProb: combined,
		Edge:         ed,
		EV:           ev,
		Score:        0.6*ed + 0.4*(ev/100),
	}
}

// Validate checks a candidate leg set against the parlay rules, returning a
// named reason per failed gate.
func Validate(picks []Pick, rules config.ParlayRules) []string {
	n := len(picks)
	p := Compose(picks)

	var reasons []string
	if n < rules.MinPicks {
		reasons = append(reasons, fmt.Sprintf("too few picks: %d < %d", n, rules.MinPicks))
	}
	if n > rules.MaxPicks {
		reasons = append(reasons, fmt.Sprintf("too many picks: %d > %d", n, rules.MaxPicks))
	}
	if p.TotalOdds < rules.MinTotalOdds {
		reasons = append(reasons, fmt.Sprintf("odds too low: %.2f < %.2f", p.TotalOdds, rules.MinTotalOdds))
	}
	if p.TotalOdds > rules.MaxTotalOdds {
		reasons = append(reasons, fmt.Sprintf("odds too high: %.2f > %.2f", p.TotalOdds, rules.MaxTotalOdds))
	}
	if p.CombinedProb < rules.MinCombinedProb {
		reasons = append(reasons, fmt.Sprintf("probability too low: %.1f%% < %.1f%%", p.CombinedProb*100, rules.MinCombinedProb*100))
	}
	return reasons
}

// BestParlay scans every allowed leg-set size over the given picks and
// returns the highest scoring valid parlay, or nil when nothing validates.
// Pick counts are small (post-diversification), so the combinatorial scan
// stays cheap.
func BestParlay(picks []Pick, rules config.ParlayRules) *Parlay {
	if len(picks) == 0 {
		return nil
	}
	maxSize := rules.MaxPicks
	if maxSize > len(picks) {
		maxSize = len(picks)
	}

	var best *Parlay
	for size := rules.MinPicks; size <= maxSize; size++ {
		combinations(len(picks), size, func(idx []int) {
			combo := make([]Pick, len(idx))
			for i, k := range idx {
				combo[i] = picks[k]
			}
			if len(Validate(combo, rules)) > 0 {
				return
			}
			p := Compose(combo)
			if best == nil || p.Score > best.Score {
				best = &p
			}
		})
	}
	return best
}

// combinations visits every k-subset of [0,n) in lexicographic order. The
// index slice is reused between visits.
func combinations(n, k int, visit func([]int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		visit(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
