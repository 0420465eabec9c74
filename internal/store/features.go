package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/events"
)

// SaveFeatures persists one engineered feature row. Rows are written once
// per match and immutable after: a rebuild recomputes from scratch instead
// of patching stored rows, so the insert ignores duplicates.
func (s *Store) SaveFeatures(matchID string, sport events.Sport, matchDate time.Time, v features.Vector) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal features %s: %w", matchID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO engineered_features (match_id, sport, match_date, features, built_at)
		 VALUES (?,?,?,?,?)`,
		matchID, sport, fmtTime(matchDate), string(data), fmtTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save features %s: %w", matchID, err)
	}
	return nil
}

// FeaturesFor loads the stored feature vector for a match; nil when the
// match was never featurized.
func (s *Store) FeaturesFor(matchID string) (features.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRow(`SELECT features FROM engineered_features WHERE match_id = ?`, matchID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("features for %s: %w", matchID, err)
	}

	var v features.Vector
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode features %s: %w", matchID, err)
	}
	return v, nil
}

// FeatureRow is one stored feature vector with its fixture date.
type FeatureRow struct {
	MatchID   string
	MatchDate time.Time
	Vector    features.Vector
}

// FeatureHistory lists every stored feature row for a sport in fixture
// order. The drift monitor splits this into baseline and recent windows.
func (s *Store) FeatureHistory(sport events.Sport) ([]FeatureRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT match_id, match_date, features FROM engineered_features
		 WHERE sport = ? ORDER BY match_date ASC`, sport)
	if err != nil {
		return nil, fmt.Errorf("feature history: %w", err)
	}
	defer rows.Close()

	var out []FeatureRow
	for rows.Next() {
		var r FeatureRow
		var date, raw string
		if err := rows.Scan(&r.MatchID, &date, &raw); err != nil {
			return nil, err
		}
		r.MatchDate = parseTime(date)
		if err := json.Unmarshal([]byte(raw), &r.Vector); err != nil {
			return nil, fmt.Errorf("decode features %s: %w", r.MatchID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearFeatures drops every stored feature row for a sport ahead of a full
// rebuild.
func (s *Store) ClearFeatures(sport events.Sport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM engineered_features WHERE sport = ?`, sport); err != nil {
		return fmt.Errorf("clear features: %w", err)
	}
	return nil
}
