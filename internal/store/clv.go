package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CLVRow is one closing-line-value tracking row.
type CLVRow struct {
	PickID      string
	BetID       string
	MatchID     string
	Outcome     string
	OpeningOdds float64
	BetOdds     float64
	ClosingOdds float64
	CLVPct      float64
	RecordedAt  time.Time
}

// OpenCLVRows lists tracking rows that still lack a closing price, i.e. the
// legs the closing-odds job needs to refresh.
func (s *Store) OpenCLVRows() ([]CLVRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT pick_id, bet_id, match_id, outcome, opening_odds, bet_odds
		 FROM clv_tracking WHERE closing_odds IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("open clv rows: %w", err)
	}
	defer rows.Close()

	var out []CLVRow
	for rows.Next() {
		var r CLVRow
		if err := rows.Scan(&r.PickID, &r.BetID, &r.MatchID, &r.Outcome, &r.OpeningOdds, &r.BetOdds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetPickClosing records a leg's latest pre-kickoff price and its CLV. The
// pick row and its tracking row move together in one transaction.
func (s *Store) SetPickClosing(pickID string, closing, clvPct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set closing: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE picks SET closing_odds = ? WHERE id = ?`, closing, pickID); err != nil {
		return fmt.Errorf("pick closing %s: %w", pickID, err)
	}
	if _, err := tx.Exec(
		`UPDATE clv_tracking SET closing_odds = ?, clv_pct = ? WHERE pick_id = ?`,
		closing, clvPct, pickID,
	); err != nil {
		return fmt.Errorf("clv closing %s: %w", pickID, err)
	}
	return tx.Commit()
}

// SetBetClosing records the parlay-level closing odds (product of leg
// closings) and its CLV against the opening total.
func (s *Store) SetBetClosing(betID string, closing, clvPct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`UPDATE bets SET closing_odds = ?, clv_percentage = ? WHERE id = ?`,
		closing, clvPct, betID,
	); err != nil {
		return fmt.Errorf("bet closing %s: %w", betID, err)
	}
	return nil
}

// SettledCLV returns the CLV percentages of tracking rows with a closing
// price recorded in the last windowDays, for aggregate stats.
func (s *Store) SettledCLV(windowDays int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := fmtTime(time.Now().AddDate(0, 0, -windowDays))
	rows, err := s.db.Query(
		`SELECT clv_pct FROM clv_tracking WHERE clv_pct IS NOT NULL AND recorded_at >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("settled clv: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out, rows.Err()
}
