package settle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/charleschow/edgeline/internal/telemetry"
)

// CLV is the closing-line-value of one leg: closing odds over the odds
// actually bet, minus one.
func CLV(betOdds, closingOdds float64) float64 {
	if betOdds <= 1 || closingOdds <= 0 {
		return 0
	}
	v := decimal.NewFromFloat(closingOdds).
		Div(decimal.NewFromFloat(betOdds)).
		Sub(decimal.NewFromInt(1))
	f, _ := v.Round(6).Float64()
	return f
}

// ApplyClosingOdds writes each leg's latest pre-kickoff price and its CLV,
// then recomputes the parlay-level closing line as the product of the leg
// closings. Legs without a fresh price are skipped and retried next run.
func (s *Service) ApplyClosingOdds(closing map[string]map[string]float64) (int, error) {
	open, err := s.store.OpenCLVRows()
	if err != nil {
		return 0, fmt.Errorf("closing odds: %w", err)
	}

	updated := 0
	touched := make(map[string]bool)
	for _, row := range open {
		byOutcome, ok := closing[row.MatchID]
		if !ok {
			continue
		}
		price, ok := byOutcome[row.Outcome]
		if !ok || price <= 1 {
			continue
		}
		if err := s.store.SetPickClosing(row.PickID, price, CLV(row.BetOdds, price)); err != nil {
			telemetry.Warnf("closing odds: %v", err)
			continue
		}
		updated++
		touched[row.BetID] = true
	}

	for betID := range touched {
		if err := s.recomputeBetClosing(betID); err != nil {
			telemetry.Warnf("closing odds: bet %s: %v", betID, err)
		}
	}
	return updated, nil
}

// recomputeBetClosing sets a bet's closing odds once every leg has one.
func (s *Service) recomputeBetClosing(betID string) error {
	legs, err := s.store.BetLegs(betID)
	if err != nil {
		return err
	}
	product := decimal.NewFromInt(1)
	for _, leg := range legs {
		if leg.ClosingOdds <= 0 {
			return nil // wait until every leg has closed
		}
		product = product.Mul(decimal.NewFromFloat(leg.ClosingOdds))
	}

	bet, err := s.store.BetByID(betID)
	if err != nil {
		return err
	}
	closing, _ := product.Round(4).Float64()
	return s.store.SetBetClosing(betID, closing, CLV(bet.OpeningOdds, closing))
}

// Stats summarize realized CLV over a window.
type Stats struct {
	N            int     `json:"n"`
	Average      float64 `json:"average"`
	Max          float64 `json:"max"`
	Min          float64 `json:"min"`
	PositiveRate float64 `json:"positive_rate"`
	Rating       string  `json:"rating"`
}

// CLVStats aggregates the tracked CLV rows of the last windowDays.
func (s *Service) CLVStats(windowDays int) (Stats, error) {
	clvs, err := s.store.SettledCLV(windowDays)
	if err != nil {
		return Stats{}, err
	}
	if len(clvs) == 0 {
		return Stats{Rating: "no data"}, nil
	}

	st := Stats{N: len(clvs), Max: clvs[0], Min: clvs[0]}
	var sum float64
	positive := 0
	for _, v := range clvs {
		sum += v
		if v > st.Max {
			st.Max = v
		}
		if v < st.Min {
			st.Min = v
		}
		if v > 0 {
			positive++
		}
	}
	st.Average = sum / float64(len(clvs))
	st.PositiveRate = float64(positive) / float64(len(clvs))
	st.Rating = Rating(st.Average)
	return st, nil
}

// Rating buckets an average CLV into the operator-facing tiers.
func Rating(avgCLV float64) string {
	switch {
	case avgCLV > 0.05:
		return "elite"
	case avgCLV > 0.03:
		return "sharp"
	case avgCLV > 0.01:
		return "good"
	case avgCLV > -0.01:
		return "neutral"
	default:
		return "poor"
	}
}
