// Package edge turns calibrated predictions into value picks: per-outcome
// edge math, threshold gates with named rejection reasons, league
// diversification, and parlay assembly.
package edge

import (
	"fmt"
	"sort"
	"time"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/market"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/core/sports"
)

// Pick is one evaluated outcome of one match. Rejected picks keep their
// reasons so a run can report exactly why nothing qualified.
type Pick struct {
	MatchID    string         `json:"match_id"`
	League     string         `json:"league"`
	Label      string         `json:"label"`
	MatchDate  time.Time      `json:"match_date"`
	Outcome    sports.Outcome `json:"outcome"`
	Prob       float64        `json:"probability"`
	Odds       float64        `json:"odds"`
	Implied    float64        `json:"implied_probability"`
	Edge       float64        `json:"edge"`
	EdgePct    float64        `json:"edge_percentage"`
	Accepted   bool           `json:"accepted"`
	Rejections []string       `json:"rejection_reasons,omitempty"`
}

// Evaluate scores every offered outcome of a match against the criteria.
// Outcomes without a quoted price are excluded, not rejected. Acceptance is
// the conjunction of all gates; every failed gate adds a named reason.
func Evaluate(pred model.Prediction, m sports.Match, crit config.PickCriteria) []Pick {
	picks := make([]Pick, 0, 3)
	for _, out := range m.Odds.Outcomes() {
		odds := m.Odds.For(out)
		prob := pred.For(out)
		implied := market.Implied(odds)
		ed := prob - implied

		p := Pick{
			MatchID: m.ID, League: m.League, Label: m.Label(), MatchDate: m.Date,
			Outcome: out, Prob: prob, Odds: odds, Implied: implied,
			Edge: ed, EdgePct: ed * 100,
		}

		var reasons []string
		if prob < crit.MinProbability {
			reasons = append(reasons, fmt.Sprintf("probability %.1f%% < %.1f%%", prob*100, crit.MinProbability*100))
		}
		if ed < crit.MinEdge {
			reasons = append(reasons, fmt.Sprintf("edge %.1f%% < %.1f%%", ed*100, crit.MinEdge*100))
		}
		if odds < crit.MinOdds {
			reasons = append(reasons, fmt.Sprintf("odds %.2f < %.2f", odds, crit.MinOdds))
		}
		if odds > crit.MaxOdds {
			reasons = append(reasons, fmt.Sprintf("odds %.2f > %.2f", odds, crit.MaxOdds))
		}
		p.Accepted = len(reasons) == 0
		p.Rejections = reasons
		picks = append(picks, p)
	}
	return picks
}

// Diversify keeps the best accepted picks, highest edge first, at most
// maxPerLeague per league and never two legs from the same match.
func Diversify(picks []Pick, maxPerLeague int) []Pick {
	if maxPerLeague <= 0 {
		maxPerLeague = 1
	}
	accepted := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if p.Accepted {
			accepted = append(accepted, p)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Edge > accepted[j].Edge })

	perLeague := make(map[string]int)
	seenMatch := make(map[string]bool)
	out := make([]Pick, 0, len(accepted))
	for _, p := range accepted {
		if seenMatch[p.MatchID] || perLeague[p.League] >= maxPerLeague {
			continue
		}
		seenMatch[p.MatchID] = true
		perLeague[p.League]++
		out = append(out, p)
	}
	return out
}
