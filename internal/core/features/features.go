// Package features turns a match plus the ratings store into the fixed-width
// numeric vector the classifier consumes. Everything here is leakage-free by
// construction: every store query is dated at the match kickoff, and the
// store refuses to answer once it has advanced past that date.
package features

import (
	"errors"
	"fmt"

	"github.com/charleschow/edgeline/internal/core/market"
	"github.com/charleschow/edgeline/internal/core/ratings"
	"github.com/charleschow/edgeline/internal/core/sports"
)

// ErrLeakage means a feature build requested team state at or after the
// match date. The error is loud: a clamped or reordered answer would
// silently poison the training set.
var ErrLeakage = errors.New("features: state requested at or after match date")

const (
	formWindow  = 5
	goalsWindow = 10
)

// Vector is a named feature mapping.
type Vector map[string]float64

// Order is the canonical column order for model input. Append-only: models
// persist the order they were trained with and refuse mismatched vectors.
var Order = []string{
	"elo_home", "elo_away", "elo_diff",
	"form_home", "form_away", "form_diff",
	"h2h_matches", "h2h_home_win_rate", "h2h_avg_goals_home", "h2h_avg_goals_away", "h2h_goal_diff",
	"home_goals_scored_avg", "home_goals_conceded_avg", "home_goal_diff",
	"away_goals_scored_avg", "away_goals_conceded_avg", "away_goal_diff",
	"league_strength",
	"home_win_odds", "draw_odds", "away_win_odds",
	"implied_home", "implied_draw", "implied_away",
	"market_margin",
}

// Values flattens the vector into the given column order; absent names are 0.
func (v Vector) Values(order []string) []float64 {
	out := make([]float64, len(order))
	for i, name := range order {
		out[i] = v[name]
	}
	return out
}

// Engine builds feature vectors against one ratings store.
type Engine struct {
	store *ratings.Store
}

func NewEngine(store *ratings.Store) *Engine {
	return &Engine{store: store}
}

// Build computes the feature vector for a match using only state strictly
// before its kickoff. Cold-start teams produce neutral priors, which is
// expected: early-history vectors carry little signal and the model sees
// them as such.
func (e *Engine) Build(m sports.Match) (Vector, error) {
	if m.Date.IsZero() {
		return nil, fmt.Errorf("features: match %s has no date", m.ID)
	}

	homeState, err := e.store.StateAsOf(m.HomeTeam, m.Date)
	if err != nil {
		return nil, e.wrap(m, err)
	}
	awayState, err := e.store.StateAsOf(m.AwayTeam, m.Date)
	if err != nil {
		return nil, e.wrap(m, err)
	}

	homeForm, err := e.store.Form(m.HomeTeam, m.Date, formWindow)
	if err != nil {
		return nil, e.wrap(m, err)
	}
	awayForm, err := e.store.Form(m.AwayTeam, m.Date, formWindow)
	if err != nil {
		return nil, e.wrap(m, err)
	}

	h2h, err := e.store.HeadToHead(m.HomeTeam, m.AwayTeam, m.Date)
	if err != nil {
		return nil, e.wrap(m, err)
	}
	homeGoals, err := e.store.RollingGoals(m.HomeTeam, m.Date, goalsWindow)
	if err != nil {
		return nil, e.wrap(m, err)
	}
	awayGoals, err := e.store.RollingGoals(m.AwayTeam, m.Date, goalsWindow)
	if err != nil {
		return nil, e.wrap(m, err)
	}
	leagueStrength, err := e.store.LeagueStrength(m.League, m.Date)
	if err != nil {
		return nil, e.wrap(m, err)
	}

	v := Vector{
		"elo_home": homeState.Elo,
		"elo_away": awayState.Elo,
		"elo_diff": homeState.Elo - awayState.Elo,

		"form_home": homeForm,
		"form_away": awayForm,
		"form_diff": homeForm - awayForm,

		"h2h_matches":        float64(h2h.Meetings),
		"h2h_home_win_rate":  h2h.HomeWinRate,
		"h2h_avg_goals_home": h2h.AvgGoalsHome,
		"h2h_avg_goals_away": h2h.AvgGoalsAway,
		"h2h_goal_diff":      h2h.AvgGoalsHome - h2h.AvgGoalsAway,

		"home_goals_scored_avg":   homeGoals.ScoredAvg,
		"home_goals_conceded_avg": homeGoals.ConcededAvg,
		"home_goal_diff":          homeGoals.Diff,
		"away_goals_scored_avg":   awayGoals.ScoredAvg,
		"away_goals_conceded_avg": awayGoals.ConcededAvg,
		"away_goal_diff":          awayGoals.Diff,

		"league_strength": leagueStrength,

		"home_win_odds": m.Odds.HomeWin,
		"draw_odds":     m.Odds.Draw,
		"away_win_odds": m.Odds.AwayWin,

		"implied_home":  market.Implied(m.Odds.HomeWin),
		"implied_draw":  market.Implied(m.Odds.Draw),
		"implied_away":  market.Implied(m.Odds.AwayWin),
		"market_margin": market.Overround(m.Odds),
	}
	return v, nil
}

func (e *Engine) wrap(m sports.Match, err error) error {
	if errors.Is(err, ratings.ErrChronologyViolation) {
		return fmt.Errorf("%w: match %s at %s: %w",
			ErrLeakage, m.ID, m.Date.Format("2006-01-02"), err)
	}
	return fmt.Errorf("features: match %s: %w", m.ID, err)
}
