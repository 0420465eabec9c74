// Package store is the single owner of persisted pipeline state: odds,
// results, engineered features, decision parameters, bets, picks, and the
// bankroll ledger, all in one embedded SQLite file.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charleschow/edgeline/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	maxStoreBytes int64   = 1 << 30 // 1 GiB
	evictPct      float64 = 0.10    // evict oldest 10% of snapshot rows
	vacuumInterval        = 10      // incremental vacuum every N evictions
)

// Store wraps the SQLite database behind a mutex. Only raw odds snapshots
// are evictable; every other table is the system of record and is never
// trimmed.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	cachedSize   int64
	snapshotRows int64
	evictCounter int
}

// Open creates or opens the store at path, applying pragmas and additive
// migrations. The connection pool is pinned to one connection so WAL writes
// serialize cleanly.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	var avMode int
	if err := db.QueryRow(`PRAGMA auto_vacuum`).Scan(&avMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("read auto_vacuum: %w", err)
	}
	if avMode != 2 {
		if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set auto_vacuum: %w", err)
		}
		if _, err := db.Exec(`VACUUM`); err != nil {
			telemetry.Warnf("store: VACUUM to enable auto_vacuum failed: %v", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	// Additive migrations. ALTER fails harmlessly when the column exists.
	for _, stmt := range []string{
		`ALTER TABLE bets ADD COLUMN placed_odds REAL`,
		`ALTER TABLE bets ADD COLUMN clv_percentage REAL`,
		`ALTER TABLE bets ADD COLUMN degraded INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE picks ADD COLUMN result_source TEXT`,
		`ALTER TABLE picks ADD COLUMN closing_odds REAL`,
	} {
		db.Exec(stmt)
	}

	var size int64
	db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`).Scan(&size)
	var rows int64
	db.QueryRow(`SELECT COUNT(*) FROM raw_odds_snapshots`).Scan(&rows)

	telemetry.Infof("store: opened %s  size=%d  snapshots=%d", path, size, rows)
	return &Store{db: db, cachedSize: size, snapshotRows: rows}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS raw_odds_snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id    TEXT NOT NULL,
	sport       TEXT NOT NULL,
	league      TEXT NOT NULL,
	home_team   TEXT NOT NULL,
	away_team   TEXT NOT NULL,
	match_date  TEXT NOT NULL,
	captured_at TEXT NOT NULL,
	home_odds   REAL NOT NULL,
	draw_odds   REAL,
	away_odds   REAL NOT NULL,
	bookmakers  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS canonical_odds (
	match_id     TEXT PRIMARY KEY,
	sport        TEXT NOT NULL,
	league       TEXT NOT NULL,
	home_team    TEXT NOT NULL,
	away_team    TEXT NOT NULL,
	match_date   TEXT NOT NULL,
	home_odds    REAL NOT NULL,
	draw_odds    REAL,
	away_odds    REAL NOT NULL,
	implied_home REAL NOT NULL,
	implied_draw REAL,
	implied_away REAL NOT NULL,
	margin       REAL NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id    TEXT PRIMARY KEY,
	home_score  INTEGER NOT NULL,
	away_score  INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS engineered_features (
	match_id   TEXT PRIMARY KEY,
	sport      TEXT NOT NULL,
	match_date TEXT NOT NULL,
	features   TEXT NOT NULL,
	built_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS parameters (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS parameter_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	key        TEXT NOT NULL,
	old_value  TEXT,
	new_value  TEXT NOT NULL,
	changed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bets (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL,
	sport            TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	legs             INTEGER NOT NULL,
	total_odds       REAL NOT NULL,
	combined_prob    REAL NOT NULL,
	edge             REAL NOT NULL,
	stake            REAL NOT NULL,
	potential_return REAL NOT NULL,
	opening_odds     REAL NOT NULL,
	closing_odds     REAL,
	bankroll_before  REAL NOT NULL,
	bankroll_after   REAL,
	status           TEXT NOT NULL DEFAULT 'pending',
	result           TEXT,
	profit_loss      REAL,
	settled_at       TEXT
);

CREATE TABLE IF NOT EXISTS picks (
	id           TEXT PRIMARY KEY,
	bet_id       TEXT NOT NULL,
	match_id     TEXT NOT NULL,
	league       TEXT NOT NULL,
	label        TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	odds         REAL NOT NULL,
	prob         REAL NOT NULL,
	edge         REAL NOT NULL,
	opening_odds REAL NOT NULL,
	result       TEXT,
	settled_at   TEXT
);

CREATE TABLE IF NOT EXISTS bankroll_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	balance     REAL NOT NULL,
	change      REAL NOT NULL,
	reason      TEXT NOT NULL,
	bet_id      TEXT,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clv_tracking (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	pick_id      TEXT NOT NULL,
	bet_id       TEXT NOT NULL,
	match_id     TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	opening_odds REAL NOT NULL,
	bet_odds     REAL NOT NULL,
	closing_odds REAL,
	clv_pct      REAL,
	recorded_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_match ON raw_odds_snapshots(match_id);
CREATE INDEX IF NOT EXISTS idx_picks_bet ON picks(bet_id);
CREATE INDEX IF NOT EXISTS idx_picks_pending ON picks(result) WHERE result IS NULL;
`

// refreshSize re-reads the database file size. Must hold s.mu.
func (s *Store) refreshSize() {
	var size int64
	row := s.db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`)
	if err := row.Scan(&size); err == nil {
		s.cachedSize = size
	}
}

// evictSnapshots deletes the oldest 10% of raw odds snapshots. Snapshots are
// the only evictable table; everything else is durable. Must hold s.mu.
func (s *Store) evictSnapshots() {
	toDelete := int64(float64(s.snapshotRows) * evictPct)
	if toDelete < 1 {
		toDelete = 1
	}

	res, err := s.db.Exec(
		`DELETE FROM raw_odds_snapshots WHERE id IN (
			SELECT id FROM raw_odds_snapshots ORDER BY id ASC LIMIT ?
		)`, toDelete,
	)
	if err != nil {
		telemetry.Warnf("store evict: %v", err)
		return
	}

	deleted, _ := res.RowsAffected()
	s.snapshotRows -= deleted
	s.evictCounter++
	telemetry.Infof("store: evicted %d odds snapshots (target %d)", deleted, toDelete)

	if s.evictCounter%vacuumInterval == 0 {
		s.db.Exec(`PRAGMA incremental_vacuum`)
	}
	s.refreshSize()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
