package config

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultSnapshotValid(t *testing.T) {
	snap := DefaultSnapshot()
	if err := snap.Validate(); err != nil {
		t.Fatalf("default snapshot invalid: %v", err)
	}
	if snap.Picks.MinEdge != 0.03 {
		t.Errorf("default min_edge = %v, want 0.03", snap.Picks.MinEdge)
	}
	if snap.Bankroll.KellyFraction != 0.25 {
		t.Errorf("default kelly_fraction = %v, want 0.25", snap.Bankroll.KellyFraction)
	}
}

func TestLoadSnapshotEmptyPath(t *testing.T) {
	snap, err := LoadSnapshot("")
	if err != nil {
		t.Fatalf("LoadSnapshot(\"\") error: %v", err)
	}
	if !reflect.DeepEqual(snap, DefaultSnapshot()) {
		t.Error("empty path should return defaults")
	}
}

func TestLoadSnapshotOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	yaml := `
picks:
  min_probability: 0.50
  min_edge: 0.04
  min_odds: 1.60
  max_odds: 2.80
  max_picks_per_league: 2
bankroll:
  kelly_fraction: 0.10
  max_bet_percentage: 2.0
  min_edge_to_bet: 0.02
  min_bankroll: 100
  volatility_trigger: 0.8
  volatility_floor: 0.5
  drawdown_trigger: 0.9
  drawdown_floor: 0.3
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot error: %v", err)
	}
	if snap.Picks.MinEdge != 0.04 {
		t.Errorf("min_edge = %v, want 0.04", snap.Picks.MinEdge)
	}
	if snap.Picks.MaxPicksPerLeague != 2 {
		t.Errorf("max_picks_per_league = %d, want 2", snap.Picks.MaxPicksPerLeague)
	}
	// sections absent from the file keep their defaults
	if snap.Parlay.MaxPicks != 3 {
		t.Errorf("parlay max_picks = %d, want default 3", snap.Parlay.MaxPicks)
	}
	if snap.Model.Folds != 3 {
		t.Errorf("model folds = %d, want default 3", snap.Model.Folds)
	}
}

func TestLoadSnapshotBadFile(t *testing.T) {
	if _, err := LoadSnapshot("/nonexistent/thresholds.yaml"); err == nil {
		t.Error("missing file should error")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("picks: [not, a, map]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("malformed yaml should error")
	}
}

func TestApplyParams(t *testing.T) {
	snap := DefaultSnapshot()
	out := snap.ApplyParams(map[string]string{
		"min_edge":        "0.05",
		"min_probability": "0.52",
		"kelly_fraction":  "0.15",
		"bogus_key":       "1.0",
		"min_odds":        "not-a-number",
	})

	if out.Picks.MinEdge != 0.05 {
		t.Errorf("min_edge = %v, want 0.05", out.Picks.MinEdge)
	}
	if out.Picks.MinProbability != 0.52 {
		t.Errorf("min_probability = %v, want 0.52", out.Picks.MinProbability)
	}
	if out.Bankroll.KellyFraction != 0.15 {
		t.Errorf("kelly_fraction = %v, want 0.15", out.Bankroll.KellyFraction)
	}
	if out.Picks.MinOdds != snap.Picks.MinOdds {
		t.Errorf("unparseable min_odds should keep default, got %v", out.Picks.MinOdds)
	}
	// the receiver is untouched
	if snap.Picks.MinEdge != 0.03 {
		t.Errorf("ApplyParams mutated receiver: min_edge = %v", snap.Picks.MinEdge)
	}
}

func TestForSport(t *testing.T) {
	snap := DefaultSnapshot()
	snap.Sports = map[string]PickCriteria{
		"basketball": {
			MinProbability:    0.58,
			MinEdge:           0.04,
			MinOdds:           1.40,
			MaxOdds:           2.50,
			MaxPicksPerLeague: 1,
		},
	}

	bb := snap.ForSport("basketball")
	if bb.Picks.MinProbability != 0.58 {
		t.Errorf("basketball min_probability = %v, want 0.58", bb.Picks.MinProbability)
	}
	soccer := snap.ForSport("soccer")
	if math.Abs(soccer.Picks.MinProbability-0.55) > 1e-12 {
		t.Errorf("soccer should keep global criteria, got %v", soccer.Picks.MinProbability)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"min odds at 1.0", func(s *Snapshot) { s.Picks.MinOdds = 1.0 }},
		{"odds band inverted", func(s *Snapshot) { s.Picks.MaxOdds = s.Picks.MinOdds - 0.1 }},
		{"probability above 1", func(s *Snapshot) { s.Picks.MinProbability = 1.5 }},
		{"full kelly", func(s *Snapshot) { s.Bankroll.KellyFraction = 1.0 }},
		{"zero cap", func(s *Snapshot) { s.Bankroll.MaxBetPercentage = 0 }},
		{"zero floor", func(s *Snapshot) { s.Bankroll.VolatilityFloor = 0 }},
		{"single fold", func(s *Snapshot) { s.Model.Folds = 1 }},
		{"holdout at 1", func(s *Snapshot) { s.Model.CalibrationHoldout = 1.0 }},
		{"parlay bounds", func(s *Snapshot) { s.Parlay.MaxPicks = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := DefaultSnapshot()
			tc.mutate(&snap)
			if err := snap.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
