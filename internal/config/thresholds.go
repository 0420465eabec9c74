package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PickCriteria are the per-outcome acceptance thresholds.
type PickCriteria struct {
	MinProbability    float64 `yaml:"min_probability"`
	MinEdge           float64 `yaml:"min_edge"`
	MinOdds           float64 `yaml:"min_odds"`
	MaxOdds           float64 `yaml:"max_odds"`
	MaxPicksPerLeague int     `yaml:"max_picks_per_league"`
}

// ParlayRules bound what a proposed parlay may look like.
type ParlayRules struct {
	MinPicks        int     `yaml:"min_picks"`
	MaxPicks        int     `yaml:"max_picks"`
	MinTotalOdds    float64 `yaml:"min_total_odds"`
	MaxTotalOdds    float64 `yaml:"max_total_odds"`
	MinCombinedProb float64 `yaml:"min_combined_probability"`
}

// BankrollRules drive stake sizing and settlement safety rails.
type BankrollRules struct {
	KellyFraction      float64 `yaml:"kelly_fraction"`
	MaxBetPercentage   float64 `yaml:"max_bet_percentage"`
	MinEdgeToBet       float64 `yaml:"min_edge_to_bet"`
	MinBankroll        float64 `yaml:"min_bankroll"`
	StopLossPercentage float64 `yaml:"stop_loss_percentage"`

	// Volatility discount: when recent per-bet return stdev exceeds the
	// trigger, the stake is scaled down, never below the floor multiplier.
	VolatilityTrigger float64 `yaml:"volatility_trigger"`
	VolatilityFloor   float64 `yaml:"volatility_floor"`

	// Drawdown discount: when bankroll sits below trigger x rolling peak,
	// the stake scales with drawdown depth, never below the floor multiplier.
	DrawdownTrigger float64 `yaml:"drawdown_trigger"`
	DrawdownFloor   float64 `yaml:"drawdown_floor"`
}

// ModelRules parameterize training and calibration.
type ModelRules struct {
	MinTrainSamples    int     `yaml:"min_train_samples"`
	Folds              int     `yaml:"folds"`
	CalibrationHoldout float64 `yaml:"calibration_holdout"`
	ECEWarnThreshold   float64 `yaml:"ece_warn_threshold"`
	WalkForwardGapDays int     `yaml:"walkforward_gap_days"`
}

// Snapshot is one immutable view of every decision threshold, read once per
// run and threaded through the pick, stake, and autotune code. Components
// never consult a global store mid-run.
type Snapshot struct {
	Picks    PickCriteria             `yaml:"picks"`
	Parlay   ParlayRules              `yaml:"parlay"`
	Bankroll BankrollRules            `yaml:"bankroll"`
	Model    ModelRules               `yaml:"model"`
	Sports   map[string]PickCriteria  `yaml:"sports"`
}

// DefaultSnapshot returns the documented defaults, used when no thresholds
// file is configured.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Picks: PickCriteria{
			MinProbability:    0.55,
			MinEdge:           0.03,
			MinOdds:           1.50,
			MaxOdds:           3.50,
			MaxPicksPerLeague: 1,
		},
		Parlay: ParlayRules{
			MinPicks:        2,
			MaxPicks:        3,
			MinTotalOdds:    2.0,
			MaxTotalOdds:    15.0,
			MinCombinedProb: 0.10,
		},
		Bankroll: BankrollRules{
			KellyFraction:      0.25,
			MaxBetPercentage:   5.0,
			MinEdgeToBet:       0.02,
			MinBankroll:        100.0,
			StopLossPercentage: 20.0,
			VolatilityTrigger:  0.80,
			VolatilityFloor:    0.5,
			DrawdownTrigger:    0.90,
			DrawdownFloor:      0.3,
		},
		Model: ModelRules{
			MinTrainSamples:    30,
			Folds:              3,
			CalibrationHoldout: 0.20,
			ECEWarnThreshold:   0.08,
			WalkForwardGapDays: 0,
		},
	}
}

// LoadSnapshot reads a thresholds YAML over the defaults. An empty path
// returns the defaults unchanged.
func LoadSnapshot(path string) (Snapshot, error) {
	snap := DefaultSnapshot()
	if path == "" {
		return snap, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("thresholds %s: %w", path, err)
	}
	return snap, nil
}

// ForSport returns a copy with any per-sport pick criteria applied.
func (s Snapshot) ForSport(sport string) Snapshot {
	if pc, ok := s.Sports[sport]; ok {
		s.Picks = pc
	}
	return s
}

// ApplyParams overlays stored parameter overrides (typically written by the
// autotuner) onto a copy of the snapshot. Unknown keys and unparseable
// values are skipped, mirroring how operators hand-edit single rows.
func (s Snapshot) ApplyParams(params map[string]string) Snapshot {
	for key, raw := range params {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		switch key {
		case "min_probability":
			s.Picks.MinProbability = f
		case "min_edge":
			s.Picks.MinEdge = f
		case "min_odds":
			s.Picks.MinOdds = f
		case "max_odds":
			s.Picks.MaxOdds = f
		case "max_picks_per_league":
			s.Picks.MaxPicksPerLeague = int(f)
		case "kelly_fraction":
			s.Bankroll.KellyFraction = f
		case "max_bet_percentage":
			s.Bankroll.MaxBetPercentage = f
		}
	}
	return s
}

func (s Snapshot) Validate() error {
	if s.Picks.MinOdds <= 1.0 {
		return fmt.Errorf("min_odds %.2f must be above 1.0", s.Picks.MinOdds)
	}
	if s.Picks.MaxOdds < s.Picks.MinOdds {
		return fmt.Errorf("max_odds %.2f below min_odds %.2f", s.Picks.MaxOdds, s.Picks.MinOdds)
	}
	if s.Picks.MinProbability < 0 || s.Picks.MinProbability > 1 {
		return fmt.Errorf("min_probability %.2f out of [0,1]", s.Picks.MinProbability)
	}
	if s.Parlay.MinPicks < 1 || s.Parlay.MaxPicks < s.Parlay.MinPicks {
		return fmt.Errorf("parlay size bounds %d..%d invalid", s.Parlay.MinPicks, s.Parlay.MaxPicks)
	}
	if s.Bankroll.KellyFraction <= 0 || s.Bankroll.KellyFraction >= 1 {
		return fmt.Errorf("kelly_fraction %.2f must be in (0,1)", s.Bankroll.KellyFraction)
	}
	if s.Bankroll.MaxBetPercentage <= 0 || s.Bankroll.MaxBetPercentage > 100 {
		return fmt.Errorf("max_bet_percentage %.1f out of (0,100]", s.Bankroll.MaxBetPercentage)
	}
	if s.Bankroll.VolatilityFloor <= 0 || s.Bankroll.VolatilityFloor > 1 ||
		s.Bankroll.DrawdownFloor <= 0 || s.Bankroll.DrawdownFloor > 1 {
		return fmt.Errorf("discount floors must be in (0,1]")
	}
	if s.Model.Folds < 2 {
		return fmt.Errorf("folds %d must be at least 2", s.Model.Folds)
	}
	if s.Model.CalibrationHoldout <= 0 || s.Model.CalibrationHoldout >= 1 {
		return fmt.Errorf("calibration_holdout %.2f must be in (0,1)", s.Model.CalibrationHoldout)
	}
	return nil
}
