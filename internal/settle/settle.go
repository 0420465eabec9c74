// Package settle owns the money-moving side of the pipeline: resolving
// pending picks against results, cascading fully-resolved bets into the
// bankroll ledger, and closing-line-value bookkeeping. All money math is
// decimal; floats stop at the Kelly boundary.
package settle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// Service wires the store and the event bus together for settlement runs.
type Service struct {
	store *store.Store
	bus   *events.Bus
}

func New(st *store.Store, bus *events.Bus) *Service {
	return &Service{store: st, bus: bus}
}

// ResolvePending matches every pending pick against recorded results and
// settles the bets whose legs have all resolved. Returns the number of
// picks resolved. Per-pick failures are logged and skipped so one broken
// row cannot stall the whole settlement job.
func (s *Service) ResolvePending(source string) (int, error) {
	pending, err := s.store.PendingPicks()
	if err != nil {
		return 0, fmt.Errorf("settle: %w", err)
	}

	resolved := 0
	touched := make(map[string]bool)
	for _, p := range pending {
		res, err := s.store.ResultFor(p.MatchID)
		if err != nil {
			telemetry.Warnf("settle: result lookup %s: %v", p.MatchID, err)
			continue
		}
		if res == nil {
			continue
		}

		result := store.ResultLost
		if sports.Outcome(p.Outcome) == res.Outcome {
			result = store.ResultWon
		}
		if err := s.store.MarkPickSettled(p.ID, result, source); err != nil {
			telemetry.Warnf("settle: %v", err)
			continue
		}
		resolved++
		touched[p.BetID] = true

		s.publish(events.EventPickSettled, events.PickSettledEvent{
			PickID: p.ID, BetID: p.BetID, MatchID: p.MatchID,
			Label: p.Label, Outcome: p.Outcome, Result: result, Source: source,
		})
	}

	for betID := range touched {
		if err := s.trySettleBet(betID); err != nil {
			telemetry.Warnf("settle: bet %s: %v", betID, err)
		}
	}
	return resolved, nil
}

// trySettleBet settles a bet once every leg has a result: won iff all legs
// won, profit = stake x (total odds - 1) on a win, -stake otherwise.
func (s *Service) trySettleBet(betID string) error {
	legs, err := s.store.BetLegs(betID)
	if err != nil {
		return err
	}
	allWon := true
	for _, leg := range legs {
		switch leg.Result {
		case "":
			return nil // still pending legs
		case store.ResultLost:
			allWon = false
		}
	}

	bet, err := s.store.BetByID(betID)
	if err != nil {
		return err
	}
	if bet.Status == store.StatusSettled {
		return nil
	}

	stakeAmt := decimal.NewFromFloat(bet.Stake)
	var pl decimal.Decimal
	result := store.ResultLost
	if allWon {
		result = store.ResultWon
		pl = stakeAmt.Mul(decimal.NewFromFloat(bet.TotalOdds).Sub(decimal.NewFromInt(1)))
	} else {
		pl = stakeAmt.Neg()
	}
	pl = pl.Round(2)

	profitLoss, _ := pl.Float64()
	after, err := s.store.ApplyBetSettlement(betID, result, profitLoss)
	if err != nil {
		return err
	}

	telemetry.Infof("settle: bet %s %s, P/L %s, bankroll %.2f", betID, result, pl.StringFixed(2), after)
	s.publish(events.EventBetSettled, events.BetSettledEvent{
		BetID: betID, Result: result, Legs: len(legs),
		TotalOdds: bet.TotalOdds, Stake: bet.Stake,
		ProfitLoss: profitLoss, BankrollAfter: after,
	})
	return nil
}

func (s *Service) publish(typ events.EventType, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
