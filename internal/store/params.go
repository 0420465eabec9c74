package store

import (
	"fmt"
	"time"
)

// Params returns every stored parameter override as key → raw value.
func (s *Store) Params() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT key, value FROM parameters`)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetParams writes parameter overrides, recording an audit row per changed
// key. Unchanged values produce no history noise. The write is one
// transaction so a half-applied autotune result can never persist.
func (s *Store) SetParams(params map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set params: %w", err)
	}
	defer tx.Rollback()

	now := fmtTime(time.Now())
	for key, val := range params {
		var old *string
		var cur string
		err := tx.QueryRow(`SELECT value FROM parameters WHERE key = ?`, key).Scan(&cur)
		if err == nil {
			if cur == val {
				continue
			}
			old = &cur
		}

		if _, err := tx.Exec(
			`INSERT INTO parameters (key, value, updated_at) VALUES (?,?,?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			key, val, now,
		); err != nil {
			return fmt.Errorf("set param %s: %w", key, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO parameter_history (key, old_value, new_value, changed_at) VALUES (?,?,?,?)`,
			key, old, val, now,
		); err != nil {
			return fmt.Errorf("param history %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// ParamChange is one audit row from the parameter history log.
type ParamChange struct {
	Key       string
	OldValue  string
	NewValue  string
	ChangedAt time.Time
}

// ParamHistory returns the most recent parameter changes, newest first.
func (s *Store) ParamHistory(limit int) ([]ParamChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT key, COALESCE(old_value,''), new_value, changed_at
		 FROM parameter_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("param history: %w", err)
	}
	defer rows.Close()

	var out []ParamChange
	for rows.Next() {
		var c ParamChange
		var at string
		if err := rows.Scan(&c.Key, &c.OldValue, &c.NewValue, &at); err != nil {
			return nil, err
		}
		c.ChangedAt = parseTime(at)
		out = append(out, c)
	}
	return out, rows.Err()
}
