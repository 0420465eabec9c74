package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/edgeline/internal/core/edge"
	"github.com/charleschow/edgeline/internal/core/stake"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// Bet statuses and leg results.
const (
	StatusPending = "pending"
	StatusPlaced  = "placed"
	StatusSettled = "settled"

	ResultWon  = "won"
	ResultLost = "lost"
)

// BetRecord is one proposed wager (single or parlay) as persisted.
type BetRecord struct {
	ID              string
	RunID           string
	Sport           events.Sport
	CreatedAt       time.Time
	Legs            int
	TotalOdds       float64
	CombinedProb    float64
	Edge            float64
	Stake           float64
	PotentialReturn float64
	OpeningOdds     float64
	ClosingOdds     float64
	PlacedOdds      float64
	BankrollBefore  float64
	BankrollAfter   float64
	Status          string
	Result          string
	ProfitLoss      float64
	CLVPercentage   float64
	Degraded        bool
}

// PickRecord is one leg of a bet as persisted.
type PickRecord struct {
	ID           string
	BetID        string
	MatchID      string
	League       string
	Label        string
	Outcome      string
	Odds         float64
	Prob         float64
	Edge         float64
	OpeningOdds  float64
	ClosingOdds  float64
	Result       string
	ResultSource string
}

// InsertBet persists a proposed bet with its legs and the CLV baseline rows
// (opening odds = odds at recommendation) in one transaction.
func (s *Store) InsertBet(runID string, sport events.Sport, parlay edge.Parlay, dec stake.Decision, bankroll float64, degraded bool) (*BetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("insert bet: %w", err)
	}
	defer tx.Rollback()

	bet := &BetRecord{
		ID:              uuid.NewString(),
		RunID:           runID,
		Sport:           sport,
		CreatedAt:       time.Now().UTC(),
		Legs:            len(parlay.Picks),
		TotalOdds:       parlay.TotalOdds,
		CombinedProb:    parlay.CombinedProb,
		Edge:            parlay.Edge,
		Stake:           dec.Stake,
		PotentialReturn: dec.PotentialReturn,
		OpeningOdds:     parlay.TotalOdds,
		BankrollBefore:  bankroll,
		Status:          StatusPending,
		Degraded:        degraded,
	}

	if _, err := tx.Exec(
		`INSERT INTO bets
			(id, run_id, sport, created_at, legs, total_odds, combined_prob, edge,
			 stake, potential_return, opening_odds, bankroll_before, status, degraded)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		bet.ID, bet.RunID, bet.Sport, fmtTime(bet.CreatedAt), bet.Legs,
		bet.TotalOdds, bet.CombinedProb, bet.Edge, bet.Stake, bet.PotentialReturn,
		bet.OpeningOdds, bet.BankrollBefore, bet.Status, bet.Degraded,
	); err != nil {
		return nil, fmt.Errorf("insert bet row: %w", err)
	}

	now := fmtTime(time.Now())
	for _, p := range parlay.Picks {
		pickID := uuid.NewString()
		if _, err := tx.Exec(
			`INSERT INTO picks
				(id, bet_id, match_id, league, label, outcome, odds, prob, edge, opening_odds)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			pickID, bet.ID, p.MatchID, p.League, p.Label, p.Outcome, p.Odds, p.Prob, p.Edge, p.Odds,
		); err != nil {
			return nil, fmt.Errorf("insert pick %s: %w", p.MatchID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO clv_tracking (pick_id, bet_id, match_id, outcome, opening_odds, bet_odds, recorded_at)
			 VALUES (?,?,?,?,?,?,?)`,
			pickID, bet.ID, p.MatchID, p.Outcome, p.Odds, p.Odds, now,
		); err != nil {
			return nil, fmt.Errorf("insert clv baseline %s: %w", p.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bet: %w", err)
	}
	telemetry.Metrics.BetsProposed.Inc()
	return bet, nil
}

// PendingPicks returns every unsettled leg across all bets.
func (s *Store) PendingPicks() ([]PickRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(pickColumns + ` FROM picks WHERE result IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("pending picks: %w", err)
	}
	defer rows.Close()
	return scanPicks(rows)
}

// BetLegs returns every leg of one bet.
func (s *Store) BetLegs(betID string) ([]PickRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(pickColumns+` FROM picks WHERE bet_id = ?`, betID)
	if err != nil {
		return nil, fmt.Errorf("bet legs %s: %w", betID, err)
	}
	defer rows.Close()
	return scanPicks(rows)
}

const pickColumns = `SELECT id, bet_id, match_id, league, label, outcome,
	odds, prob, edge, opening_odds, closing_odds, result, result_source`

func scanPicks(rows *sql.Rows) ([]PickRecord, error) {
	var out []PickRecord
	for rows.Next() {
		var p PickRecord
		var closing sql.NullFloat64
		var result, source sql.NullString
		if err := rows.Scan(&p.ID, &p.BetID, &p.MatchID, &p.League, &p.Label,
			&p.Outcome, &p.Odds, &p.Prob, &p.Edge, &p.OpeningOdds,
			&closing, &result, &source); err != nil {
			return nil, err
		}
		p.ClosingOdds = closing.Float64
		p.Result = result.String
		p.ResultSource = source.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPickSettled records one leg's result. Already-settled legs are left
// alone so a re-run of the results job cannot flip history.
func (s *Store) MarkPickSettled(pickID, result, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE picks SET result = ?, result_source = ?, settled_at = ? WHERE id = ? AND result IS NULL`,
		result, source, fmtTime(time.Now()), pickID,
	)
	if err != nil {
		return fmt.Errorf("settle pick %s: %w", pickID, err)
	}
	telemetry.Metrics.PicksSettled.Inc()
	return nil
}

// ApplyBetSettlement commits a bet's result and the bankroll transition in
// one transaction: read balance, apply profit/loss, write the ledger row.
// The guard on status makes the transition idempotent, so two settlement
// jobs can never double-apply.
func (s *Store) ApplyBetSettlement(betID, result string, profitLoss float64) (bankrollAfter float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("settle bet: %w", err)
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRow(`SELECT status FROM bets WHERE id = ?`, betID).Scan(&status); err != nil {
		return 0, fmt.Errorf("settle bet %s: %w", betID, err)
	}
	if status == StatusSettled {
		return 0, fmt.Errorf("bet %s already settled", betID)
	}

	var balance float64
	err = tx.QueryRow(`SELECT balance FROM bankroll_history ORDER BY id DESC LIMIT 1`).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("read bankroll: %w", err)
	}
	bankrollAfter = balance + profitLoss

	now := fmtTime(time.Now())
	if _, err := tx.Exec(
		`UPDATE bets SET status = ?, result = ?, profit_loss = ?, bankroll_after = ?, settled_at = ?
		 WHERE id = ?`,
		StatusSettled, result, profitLoss, bankrollAfter, now, betID,
	); err != nil {
		return 0, fmt.Errorf("update bet %s: %w", betID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO bankroll_history (balance, change, reason, bet_id, recorded_at) VALUES (?,?,?,?,?)`,
		bankrollAfter, profitLoss, "bet "+result, betID, now,
	); err != nil {
		return 0, fmt.Errorf("bankroll ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit settlement: %w", err)
	}
	telemetry.Metrics.BetsSettled.Inc()
	telemetry.Metrics.BankrollCents.Set(int64(bankrollAfter * 100))
	return bankrollAfter, nil
}

// UnsettledBetIDs lists bets that still have a pending status.
func (s *Store) UnsettledBetIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id FROM bets WHERE status != ?`, StatusSettled)
	if err != nil {
		return nil, fmt.Errorf("unsettled bets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// BetByID loads one bet row.
func (s *Store) BetByID(betID string) (*BetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b BetRecord
	var created string
	var closing, placed, after, pl, clv sql.NullFloat64
	var result, settledAt sql.NullString
	err := s.db.QueryRow(
		`SELECT id, run_id, sport, created_at, legs, total_odds, combined_prob, edge,
			stake, potential_return, opening_odds, closing_odds, placed_odds,
			bankroll_before, bankroll_after, status, result, profit_loss, clv_percentage, settled_at, degraded
		 FROM bets WHERE id = ?`, betID,
	).Scan(&b.ID, &b.RunID, &b.Sport, &created, &b.Legs, &b.TotalOdds, &b.CombinedProb, &b.Edge,
		&b.Stake, &b.PotentialReturn, &b.OpeningOdds, &closing, &placed,
		&b.BankrollBefore, &after, &b.Status, &result, &pl, &clv, &settledAt, &b.Degraded)
	if err != nil {
		return nil, fmt.Errorf("bet %s: %w", betID, err)
	}
	b.CreatedAt = parseTime(created)
	b.ClosingOdds = closing.Float64
	b.PlacedOdds = placed.Float64
	b.BankrollAfter = after.Float64
	b.Result = result.String
	b.ProfitLoss = pl.Float64
	b.CLVPercentage = clv.Float64
	return &b, nil
}

// Bankroll returns the current ledger balance, seeding the ledger with
// initial when it is empty.
func (s *Store) Bankroll(initial float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance float64
	err := s.db.QueryRow(`SELECT balance FROM bankroll_history ORDER BY id DESC LIMIT 1`).Scan(&balance)
	if err == sql.ErrNoRows {
		if _, err := s.db.Exec(
			`INSERT INTO bankroll_history (balance, change, reason, recorded_at) VALUES (?,?,?,?)`,
			initial, initial, "initial bankroll", fmtTime(time.Now()),
		); err != nil {
			return 0, fmt.Errorf("seed bankroll: %w", err)
		}
		return initial, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read bankroll: %w", err)
	}
	return balance, nil
}

// PeakBankroll is the highest balance over the last n ledger rows, used by
// the drawdown discount.
func (s *Store) PeakBankroll(n int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peak sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT MAX(balance) FROM (SELECT balance FROM bankroll_history ORDER BY id DESC LIMIT ?)`, n,
	).Scan(&peak)
	if err != nil {
		return 0, fmt.Errorf("peak bankroll: %w", err)
	}
	return peak.Float64, nil
}

// RecentReturns lists per-bet returns (profit/loss per unit staked) of the
// latest settled bets, newest first, for the volatility discount.
func (s *Store) RecentReturns(n int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT profit_loss / stake FROM bets
		 WHERE status = ? AND stake > 0 ORDER BY settled_at DESC LIMIT ?`,
		StatusSettled, n)
	if err != nil {
		return nil, fmt.Errorf("recent returns: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SettledReturns lists per-bet returns for bets settled inside [from, to),
// oldest first. The drift monitor compares baseline and recent windows.
func (s *Store) SettledReturns(from, to time.Time) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT profit_loss / stake FROM bets
		 WHERE status = ? AND stake > 0 AND settled_at >= ? AND settled_at < ?
		 ORDER BY settled_at ASC`,
		StatusSettled, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("settled returns: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateBetPlacement records the operator-confirmed placed odds and stake.
// Placement stays manual; this is the bookkeeping side of it.
func (s *Store) UpdateBetPlacement(betID string, placedOdds, stakeAmt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE bets SET placed_odds = ?, stake = ?, status = ? WHERE id = ? AND status = ?`,
		placedOdds, stakeAmt, StatusPlaced, betID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("update placement %s: %w", betID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bet %s is not pending", betID)
	}
	return nil
}
