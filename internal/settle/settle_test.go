package settle

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/charleschow/edgeline/internal/core/edge"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/core/stake"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
)

func newFixture(t *testing.T) (*Service, *store.Store, *events.Bus) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "settle.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	bus := events.NewBus(nil)
	return New(st, bus), st, bus
}

func proposeParlay(t *testing.T, st *store.Store, bankroll float64) *store.BetRecord {
	t.Helper()
	parlay := edge.Compose([]edge.Pick{
		{MatchID: "m1", League: "premier league", Label: "Arsenal vs Chelsea",
			Outcome: sports.OutcomeHomeWin, Prob: 0.58, Odds: 1.75},
		{MatchID: "m2", League: "la liga", Label: "Betis vs Girona",
			Outcome: sports.OutcomeAwayWin, Prob: 0.50, Odds: 2.10},
	})
	bet, err := st.InsertBet("run-1", events.SportSoccer, parlay,
		stake.Decision{Stake: 20, PotentialReturn: 20 * parlay.TotalOdds}, bankroll, false)
	if err != nil {
		t.Fatal(err)
	}
	return bet
}

func TestCascadeAllLegsWon(t *testing.T) {
	svc, st, bus := newFixture(t)
	if _, err := st.Bankroll(1000); err != nil {
		t.Fatal(err)
	}
	bet := proposeParlay(t, st, 1000)

	var settledEvents []events.BetSettledEvent
	bus.Subscribe(events.EventBetSettled, func(e events.Event) error {
		settledEvents = append(settledEvents, e.Payload.(events.BetSettledEvent))
		return nil
	})

	// first leg resolves, bet must stay open
	st.InsertResult(sports.Result{MatchID: "m1", HomeScore: 2, AwayScore: 0, Outcome: sports.OutcomeHomeWin})
	n, err := svc.ResolvePending("results_api")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("resolved = %d, want 1", n)
	}
	if b, _ := st.BetByID(bet.ID); b.Status == store.StatusSettled {
		t.Fatal("bet settled with a pending leg")
	}

	// second leg resolves, cascade fires
	st.InsertResult(sports.Result{MatchID: "m2", HomeScore: 0, AwayScore: 3, Outcome: sports.OutcomeAwayWin})
	if _, err := svc.ResolvePending("results_api"); err != nil {
		t.Fatal(err)
	}

	b, _ := st.BetByID(bet.ID)
	if b.Status != store.StatusSettled || b.Result != store.ResultWon {
		t.Fatalf("bet = %s/%s, want settled/won", b.Status, b.Result)
	}
	wantPL := 20 * (bet.TotalOdds - 1)
	if math.Abs(b.ProfitLoss-wantPL) > 0.01 {
		t.Errorf("profit = %v, want %v", b.ProfitLoss, wantPL)
	}
	if len(settledEvents) != 1 {
		t.Fatalf("settled events = %d, want 1", len(settledEvents))
	}
	if math.Abs(settledEvents[0].BankrollAfter-(1000+wantPL)) > 0.01 {
		t.Errorf("bankroll after = %v, want %v", settledEvents[0].BankrollAfter, 1000+wantPL)
	}
}

func TestCascadeOneLegLost(t *testing.T) {
	svc, st, _ := newFixture(t)
	if _, err := st.Bankroll(1000); err != nil {
		t.Fatal(err)
	}
	bet := proposeParlay(t, st, 1000)

	st.InsertResult(sports.Result{MatchID: "m1", HomeScore: 2, AwayScore: 0, Outcome: sports.OutcomeHomeWin})
	st.InsertResult(sports.Result{MatchID: "m2", HomeScore: 1, AwayScore: 1, Outcome: sports.OutcomeDraw})
	if _, err := svc.ResolvePending("results_api"); err != nil {
		t.Fatal(err)
	}

	b, _ := st.BetByID(bet.ID)
	if b.Result != store.ResultLost {
		t.Fatalf("result = %q, want lost", b.Result)
	}
	if math.Abs(b.ProfitLoss-(-20)) > 1e-9 {
		t.Errorf("profit = %v, want -20", b.ProfitLoss)
	}
	if bal, _ := st.Bankroll(1000); math.Abs(bal-980) > 1e-9 {
		t.Errorf("bankroll = %v, want 980", bal)
	}

	// rerunning settlement is a no-op
	if _, err := svc.ResolvePending("results_api"); err != nil {
		t.Fatal(err)
	}
	if bal, _ := st.Bankroll(1000); math.Abs(bal-980) > 1e-9 {
		t.Errorf("bankroll = %v after rerun, want 980", bal)
	}
}

func TestCLVMath(t *testing.T) {
	tests := []struct {
		name             string
		bet, closing, want float64
	}{
		{"line shortened past us", 2.00, 1.80, -0.10},
		{"closed above our price", 2.00, 2.20, 0.10},
		{"no move", 1.85, 1.85, 0},
		{"bad inputs", 0, 1.85, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CLV(tt.bet, tt.closing); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CLV(%v, %v) = %v, want %v", tt.bet, tt.closing, got, tt.want)
			}
		})
	}
}

func TestApplyClosingOddsAndStats(t *testing.T) {
	svc, st, _ := newFixture(t)
	if _, err := st.Bankroll(1000); err != nil {
		t.Fatal(err)
	}
	bet := proposeParlay(t, st, 1000)

	closing := map[string]map[string]float64{
		"m1": {string(sports.OutcomeHomeWin): 1.60}, // line shortened below our price
		"m2": {string(sports.OutcomeAwayWin): 2.40}, // line drifted above it
	}
	n, err := svc.ApplyClosingOdds(closing)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}

	b, _ := st.BetByID(bet.ID)
	wantClosing := 1.60 * 2.40
	if math.Abs(b.ClosingOdds-wantClosing) > 1e-4 {
		t.Errorf("bet closing = %v, want %v", b.ClosingOdds, wantClosing)
	}

	stats, err := svc.CLVStats(7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.N != 2 {
		t.Fatalf("stats n = %d, want 2", stats.N)
	}
	wantAvg := ((1.60/1.75 - 1) + (2.40/2.10 - 1)) / 2
	if math.Abs(stats.Average-wantAvg) > 1e-4 {
		t.Errorf("avg clv = %v, want %v", stats.Average, wantAvg)
	}
}

func TestRatingTiers(t *testing.T) {
	tests := []struct {
		clv  float64
		want string
	}{
		{0.06, "elite"},
		{0.04, "sharp"},
		{0.02, "good"},
		{0.0, "neutral"},
		{-0.05, "poor"},
	}
	for _, tt := range tests {
		if got := Rating(tt.clv); got != tt.want {
			t.Errorf("Rating(%v) = %q, want %q", tt.clv, got, tt.want)
		}
	}
}

func TestResolvePendingSkipsUnresolved(t *testing.T) {
	svc, st, _ := newFixture(t)
	if _, err := st.Bankroll(1000); err != nil {
		t.Fatal(err)
	}
	proposeParlay(t, st, 1000)

	n, err := svc.ResolvePending("results_api")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("resolved = %d with no results recorded, want 0", n)
	}
	if pending, _ := st.PendingPicks(); len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}
