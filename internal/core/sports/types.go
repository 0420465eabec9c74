// Package sports holds the fixture and result types every pipeline stage
// shares: matches, market odds, outcomes.
package sports

import (
	"fmt"
	"time"

	"github.com/charleschow/edgeline/internal/events"
)

type Outcome string

const (
	OutcomeHomeWin Outcome = "home_win"
	OutcomeAwayWin Outcome = "away_win"
	OutcomeDraw    Outcome = "draw"
)

// MarketOdds are decimal odds per outcome. Zero means the outcome is not
// offered (two-way markets carry no draw price).
type MarketOdds struct {
	HomeWin float64 `json:"home_win"`
	AwayWin float64 `json:"away_win"`
	Draw    float64 `json:"draw,omitempty"`
}

// For returns the decimal odds for an outcome, zero when not offered.
func (o MarketOdds) For(out Outcome) float64 {
	switch out {
	case OutcomeHomeWin:
		return o.HomeWin
	case OutcomeAwayWin:
		return o.AwayWin
	case OutcomeDraw:
		return o.Draw
	}
	return 0
}

// Outcomes lists the offered outcomes in a stable order.
func (o MarketOdds) Outcomes() []Outcome {
	outs := make([]Outcome, 0, 3)
	if o.HomeWin > 0 {
		outs = append(outs, OutcomeHomeWin)
	}
	if o.Draw > 0 {
		outs = append(outs, OutcomeDraw)
	}
	if o.AwayWin > 0 {
		outs = append(outs, OutcomeAwayWin)
	}
	return outs
}

// ThreeWay reports whether the market quotes a draw.
func (o MarketOdds) ThreeWay() bool { return o.Draw > 0 }

// Match is an immutable fixture record. Team names are canonical keys
// (teams.Key), never raw feed spellings.
type Match struct {
	ID       string       `json:"match_id"`
	Sport    events.Sport `json:"sport"`
	League   string       `json:"league"`
	HomeTeam string       `json:"home_team"`
	AwayTeam string       `json:"away_team"`
	Date     time.Time    `json:"match_date"`
	Odds     MarketOdds   `json:"odds"`
	Result   *Result      `json:"result,omitempty"` // nil until resolved
}

// Label renders the fixture for logs and notifications.
func (m Match) Label() string {
	return fmt.Sprintf("%s vs %s", m.HomeTeam, m.AwayTeam)
}

// Resolved reports whether a final result is attached.
func (m Match) Resolved() bool { return m.Result != nil }

// Result is the final score of a match.
type Result struct {
	MatchID   string  `json:"match_id"`
	HomeScore int     `json:"home_score"`
	AwayScore int     `json:"away_score"`
	Outcome   Outcome `json:"outcome_label"`
}

// OutcomeFromScores maps a final score to its outcome label.
func OutcomeFromScores(homeScore, awayScore int) Outcome {
	switch {
	case homeScore > awayScore:
		return OutcomeHomeWin
	case awayScore > homeScore:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}
