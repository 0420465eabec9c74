package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/charleschow/edgeline/internal/core/market"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
)

// nullableOdds maps a zero (not offered) price to NULL.
func nullableOdds(o float64) any {
	if o <= 0 {
		return nil
	}
	return o
}

// InsertSnapshot appends one raw odds capture. Snapshots are audit data and
// sit under the store's size cap.
func (s *Store) InsertSnapshot(m sports.Match, bookmakers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO raw_odds_snapshots
			(match_id, sport, league, home_team, away_team, match_date, captured_at,
			 home_odds, draw_odds, away_odds, bookmakers)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Sport, m.League, m.HomeTeam, m.AwayTeam,
		fmtTime(m.Date), fmtTime(time.Now()),
		m.Odds.HomeWin, nullableOdds(m.Odds.Draw), m.Odds.AwayWin, bookmakers,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", m.ID, err)
	}

	s.snapshotRows++
	if s.snapshotRows%256 == 0 {
		s.refreshSize()
		if s.cachedSize > maxStoreBytes {
			s.evictSnapshots()
		}
	}
	return nil
}

// UpsertCanonical writes the de-margined odds row for a match, replacing any
// earlier capture. Implied probabilities are stored vig-free.
func (s *Store) UpsertCanonical(m sports.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := market.Demargin(m.Odds)
	var impliedDraw any
	if m.Odds.ThreeWay() {
		impliedDraw = c.Draw
	}
	_, err := s.db.Exec(
		`INSERT INTO canonical_odds
			(match_id, sport, league, home_team, away_team, match_date,
			 home_odds, draw_odds, away_odds, implied_home, implied_draw, implied_away,
			 margin, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(match_id) DO UPDATE SET
			home_odds=excluded.home_odds, draw_odds=excluded.draw_odds,
			away_odds=excluded.away_odds, implied_home=excluded.implied_home,
			implied_draw=excluded.implied_draw, implied_away=excluded.implied_away,
			margin=excluded.margin, updated_at=excluded.updated_at`,
		m.ID, m.Sport, m.League, m.HomeTeam, m.AwayTeam, fmtTime(m.Date),
		m.Odds.HomeWin, nullableOdds(m.Odds.Draw), m.Odds.AwayWin,
		c.Home, impliedDraw, c.Away, c.Margin, fmtTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert canonical odds %s: %w", m.ID, err)
	}
	return nil
}

// InsertResult writes the final score for a match. A second write for the
// same match is ignored: results are immutable once recorded.
func (s *Store) InsertResult(r sports.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO match_results
			(match_id, home_score, away_score, outcome, recorded_at)
		 VALUES (?,?,?,?,?)`,
		r.MatchID, r.HomeScore, r.AwayScore, r.Outcome, fmtTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("insert result %s: %w", r.MatchID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ResultFor reads the stored result for a match, if any.
func (s *Store) ResultFor(matchID string) (*sports.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r sports.Result
	err := s.db.QueryRow(
		`SELECT match_id, home_score, away_score, outcome FROM match_results WHERE match_id = ?`,
		matchID,
	).Scan(&r.MatchID, &r.HomeScore, &r.AwayScore, &r.Outcome)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result for %s: %w", matchID, err)
	}
	return &r, nil
}

// ResolvedMatches joins canonical odds against results, returning fully
// resolved matches in chronological order. This is the dataset source for
// training, autotuning, and backtesting.
func (s *Store) ResolvedMatches(sport events.Sport) ([]sports.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT c.match_id, c.sport, c.league, c.home_team, c.away_team, c.match_date,
			c.home_odds, c.draw_odds, c.away_odds,
			r.home_score, r.away_score, r.outcome
		 FROM canonical_odds c
		 JOIN match_results r ON r.match_id = c.match_id
		 WHERE c.sport = ?`, sport)
	if err != nil {
		return nil, fmt.Errorf("resolved matches: %w", err)
	}
	defer rows.Close()

	var out []sports.Match
	for rows.Next() {
		var m sports.Match
		var date string
		var draw sql.NullFloat64
		var r sports.Result
		if err := rows.Scan(&m.ID, &m.Sport, &m.League, &m.HomeTeam, &m.AwayTeam, &date,
			&m.Odds.HomeWin, &draw, &m.Odds.AwayWin,
			&r.HomeScore, &r.AwayScore, &r.Outcome); err != nil {
			return nil, err
		}
		m.Date = parseTime(date)
		m.Odds.Draw = draw.Float64
		r.MatchID = m.ID
		m.Result = &r
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
