// Package ratings maintains per-team running state: ELO rating, recent
// results, head-to-head history, and league membership. State advances only
// through chronologically ordered results; every query is dated and fails
// fast when it would see state from its own date or later.
package ratings

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charleschow/edgeline/internal/core/sports"
)

// ErrChronologyViolation means a result was applied, or state was queried,
// against the store's time ordering. This is a programmer error: results
// must be applied oldest first, and feature queries must run before the
// match's own result is applied.
var ErrChronologyViolation = errors.New("ratings: chronology violation")

// ErrUnresolved means ApplyResult was handed a match with no result.
var ErrUnresolved = errors.New("ratings: match has no result")

const (
	// recentWindow caps the per-team result history kept in memory. Form
	// uses the last 5, rolling goal averages the last 10.
	recentWindow = 10
	// h2hWindow caps stored meetings per team pair.
	h2hWindow = 10
	// leagueStrengthCap bounds how many teams feed a league's mean ELO.
	leagueStrengthCap = 20
)

// ResultEntry is one completed match from a single team's perspective.
type ResultEntry struct {
	Date         time.Time
	Opponent     string
	Home         bool
	GoalsFor     int
	GoalsAgainst int
	Points       float64 // 1 win, 0.5 draw, 0 loss
}

// TeamState is a point-in-time snapshot of one team's running state.
// Recent is ordered oldest first.
type TeamState struct {
	Team   string
	Elo    float64
	Recent []ResultEntry
	Played int
}

type teamRecord struct {
	elo         float64
	recent      []ResultEntry // oldest first, capped at recentWindow
	played      int
	lastApplied time.Time
}

type meeting struct {
	date      time.Time
	homeTeam  string
	homeGoals int
	awayGoals int
	outcome   sports.Outcome
}

// Store is the arena of team state keyed by canonical team key. Matches
// reference team keys; teams never reference matches back.
type Store struct {
	mu      sync.Mutex
	teams   map[string]*teamRecord
	h2h     map[string][]meeting            // unordered pair key, capped
	leagues map[string]map[string]struct{}  // league -> team key set
}

func NewStore() *Store {
	return &Store{
		teams:   make(map[string]*teamRecord),
		h2h:     make(map[string][]meeting),
		leagues: make(map[string]map[string]struct{}),
	}
}

// ApplyResult advances both teams' state with a resolved match. Results must
// arrive oldest first per team; an earlier-dated result than a team's last
// applied update is rejected.
func (s *Store) ApplyResult(m sports.Match) error {
	if m.Result == nil {
		return fmt.Errorf("%w: %s", ErrUnresolved, m.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	home := s.record(m.HomeTeam)
	away := s.record(m.AwayTeam)

	if m.Date.Before(home.lastApplied) {
		return fmt.Errorf("%w: %s dated %s before %s's last update %s",
			ErrChronologyViolation, m.ID, m.Date.Format(time.RFC3339),
			m.HomeTeam, home.lastApplied.Format(time.RFC3339))
	}
	if m.Date.Before(away.lastApplied) {
		return fmt.Errorf("%w: %s dated %s before %s's last update %s",
			ErrChronologyViolation, m.ID, m.Date.Format(time.RFC3339),
			m.AwayTeam, away.lastApplied.Format(time.RFC3339))
	}

	actualHome := pointsFor(m.Result.Outcome, true)
	dHome, dAway := update(home.elo, away.elo, actualHome)
	home.elo += dHome
	away.elo += dAway

	home.push(ResultEntry{
		Date:         m.Date,
		Opponent:     m.AwayTeam,
		Home:         true,
		GoalsFor:     m.Result.HomeScore,
		GoalsAgainst: m.Result.AwayScore,
		Points:       actualHome,
	})
	away.push(ResultEntry{
		Date:         m.Date,
		Opponent:     m.HomeTeam,
		Home:         false,
		GoalsFor:     m.Result.AwayScore,
		GoalsAgainst: m.Result.HomeScore,
		Points:       1.0 - actualHome,
	})
	home.lastApplied = m.Date
	away.lastApplied = m.Date

	s.pushMeeting(m)
	s.trackLeague(m.League, m.HomeTeam, m.AwayTeam)
	return nil
}

// StateAsOf returns a team's state snapshot strictly before date. Teams with
// no applied results get the default (InitialElo, no form). A date at or
// before the team's last applied update cannot be answered without leaking
// that update into the snapshot, so it fails.
func (s *Store) StateAsOf(team string, date time.Time) (TeamState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.teams[team]
	if !ok {
		return TeamState{Team: team, Elo: InitialElo}, nil
	}
	if err := s.checkQuery(team, rec, date); err != nil {
		return TeamState{}, err
	}

	recent := make([]ResultEntry, len(rec.recent))
	copy(recent, rec.recent)
	return TeamState{Team: team, Elo: rec.elo, Recent: recent, Played: rec.played}, nil
}

// Form returns the exponentially decayed form of the team's last n results
// as of date: weights exp(linspace(-1,0,n)) normalized, most recent match
// weighted highest. Teams without history sit at neutral 0.5.
func (s *Store) Form(team string, date time.Time, n int) (float64, error) {
	state, err := s.StateAsOf(team, date)
	if err != nil {
		return 0, err
	}
	if len(state.Recent) == 0 {
		return 0.5, nil
	}

	recent := state.Recent
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	points := make([]float64, len(recent))
	for i, e := range recent {
		points[i] = e.Points
	}
	return decayedAverage(points), nil
}

// H2HStats summarizes prior meetings from the named home team's perspective.
type H2HStats struct {
	Meetings     int
	HomeWinRate  float64
	AvgGoalsHome float64
	AvgGoalsAway float64
}

// HeadToHead returns stats over the last meetings between the two teams
// strictly before date. With no prior meetings the priors are neutral:
// win rate 0.33, 1.5 goals each side.
func (s *Store) HeadToHead(homeTeam, awayTeam string, date time.Time) (H2HStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.teams[homeTeam]; ok {
		if err := s.checkQuery(homeTeam, rec, date); err != nil {
			return H2HStats{}, err
		}
	}
	if rec, ok := s.teams[awayTeam]; ok {
		if err := s.checkQuery(awayTeam, rec, date); err != nil {
			return H2HStats{}, err
		}
	}

	meetings := s.h2h[pairKey(homeTeam, awayTeam)]
	if len(meetings) == 0 {
		return H2HStats{HomeWinRate: 0.33, AvgGoalsHome: 1.5, AvgGoalsAway: 1.5}, nil
	}

	var wins, goalsHome, goalsAway int
	for _, mt := range meetings {
		perspectiveWasHome := mt.homeTeam == homeTeam
		switch {
		case perspectiveWasHome && mt.outcome == sports.OutcomeHomeWin:
			wins++
		case !perspectiveWasHome && mt.outcome == sports.OutcomeAwayWin:
			wins++
		}
		if perspectiveWasHome {
			goalsHome += mt.homeGoals
			goalsAway += mt.awayGoals
		} else {
			goalsHome += mt.awayGoals
			goalsAway += mt.homeGoals
		}
	}
	n := float64(len(meetings))
	return H2HStats{
		Meetings:     len(meetings),
		HomeWinRate:  float64(wins) / n,
		AvgGoalsHome: float64(goalsHome) / n,
		AvgGoalsAway: float64(goalsAway) / n,
	}, nil
}

// GoalStats are rolling scored/conceded averages over a team's recent matches.
type GoalStats struct {
	ScoredAvg   float64
	ConcededAvg float64
	Diff        float64
}

// RollingGoals averages goals over the team's last n results as of date.
// Teams without history get the neutral priors 1.5 / 1.5.
func (s *Store) RollingGoals(team string, date time.Time, n int) (GoalStats, error) {
	state, err := s.StateAsOf(team, date)
	if err != nil {
		return GoalStats{}, err
	}
	if len(state.Recent) == 0 {
		return GoalStats{ScoredAvg: 1.5, ConcededAvg: 1.5}, nil
	}

	recent := state.Recent
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	var scored, conceded int
	for _, e := range recent {
		scored += e.GoalsFor
		conceded += e.GoalsAgainst
	}
	cnt := float64(len(recent))
	avgScored := float64(scored) / cnt
	avgConceded := float64(conceded) / cnt
	return GoalStats{
		ScoredAvg:   avgScored,
		ConcededAvg: avgConceded,
		Diff:        avgScored - avgConceded,
	}, nil
}

// LeagueStrength is the mean ELO of up to leagueStrengthCap teams seen in the
// league, selected deterministically by sorted key. Unseen leagues default to
// InitialElo.
func (s *Store) LeagueStrength(league string, date time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.leagues[league]
	if len(set) == 0 {
		return InitialElo, nil
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > leagueStrengthCap {
		keys = keys[:leagueStrengthCap]
	}

	var sum float64
	for _, k := range keys {
		rec := s.teams[k]
		if err := s.checkQuery(k, rec, date); err != nil {
			return 0, err
		}
		sum += rec.elo
	}
	return sum / float64(len(keys)), nil
}

// checkQuery enforces the strictly-before contract: the snapshot a query
// sees must not contain any update dated at or after the query date.
func (s *Store) checkQuery(team string, rec *teamRecord, date time.Time) error {
	if rec.played > 0 && !rec.lastApplied.Before(date) {
		return fmt.Errorf("%w: query for %s at %s but last update is %s",
			ErrChronologyViolation, team, date.Format(time.RFC3339),
			rec.lastApplied.Format(time.RFC3339))
	}
	return nil
}

func (s *Store) record(team string) *teamRecord {
	rec, ok := s.teams[team]
	if !ok {
		rec = &teamRecord{elo: InitialElo}
		s.teams[team] = rec
	}
	return rec
}

func (r *teamRecord) push(e ResultEntry) {
	r.recent = append(r.recent, e)
	if len(r.recent) > recentWindow {
		r.recent = r.recent[len(r.recent)-recentWindow:]
	}
	r.played++
}

func (s *Store) pushMeeting(m sports.Match) {
	key := pairKey(m.HomeTeam, m.AwayTeam)
	ms := append(s.h2h[key], meeting{
		date:      m.Date,
		homeTeam:  m.HomeTeam,
		homeGoals: m.Result.HomeScore,
		awayGoals: m.Result.AwayScore,
		outcome:   m.Result.Outcome,
	})
	if len(ms) > h2hWindow {
		ms = ms[len(ms)-h2hWindow:]
	}
	s.h2h[key] = ms
}

func (s *Store) trackLeague(league string, teams ...string) {
	if league == "" {
		return
	}
	set, ok := s.leagues[league]
	if !ok {
		set = make(map[string]struct{})
		s.leagues[league] = set
	}
	for _, t := range teams {
		set[t] = struct{}{}
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func pointsFor(out sports.Outcome, home bool) float64 {
	switch out {
	case sports.OutcomeDraw:
		return 0.5
	case sports.OutcomeHomeWin:
		if home {
			return 1.0
		}
		return 0.0
	case sports.OutcomeAwayWin:
		if home {
			return 0.0
		}
		return 1.0
	}
	return 0.5
}
