package model

import (
	"testing"
	"time"

	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
)

func matchAt(id, home, away string, date time.Time, hs, as int) sports.Match {
	return sports.Match{
		ID: id, Sport: events.SportSoccer, League: "serie a",
		HomeTeam: home, AwayTeam: away, Date: date,
		Odds: sports.MarketOdds{HomeWin: 2.1, Draw: 3.3, AwayWin: 3.6},
		Result: &sports.Result{
			MatchID: id, HomeScore: hs, AwayScore: as,
			Outcome: sports.OutcomeFromScores(hs, as),
		},
	}
}

func TestBuildDatasetReplaysChronologically(t *testing.T) {
	base := time.Date(2024, 9, 1, 18, 0, 0, 0, time.UTC)
	// deliberately out of order, plus one unresolved fixture
	matches := []sports.Match{
		matchAt("m3", "milan", "roma", base.AddDate(0, 0, 14), 1, 1),
		matchAt("m1", "milan", "inter", base, 2, 0),
		{ID: "m4", Sport: events.SportSoccer, League: "serie a",
			HomeTeam: "inter", AwayTeam: "roma", Date: base.AddDate(0, 0, 21),
			Odds: sports.MarketOdds{HomeWin: 1.9, Draw: 3.4, AwayWin: 4.0}},
		matchAt("m2", "roma", "inter", base.AddDate(0, 0, 7), 0, 3),
	}

	ds, err := BuildDataset(events.SportSoccer, matches)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (unresolved fixture excluded)", ds.Len())
	}
	if ds.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", ds.Skipped)
	}
	for i := 1; i < len(ds.Dates); i++ {
		if ds.Dates[i].Before(ds.Dates[i-1]) {
			t.Fatal("dataset rows are not in date order")
		}
	}

	// first row is pure cold start
	if ds.Rows[0][0] != 1500 || ds.Rows[0][1] != 1500 {
		t.Errorf("cold-start elo columns = %v/%v, want 1500/1500", ds.Rows[0][0], ds.Rows[0][1])
	}

	// labels follow outcomes: m1 home win, m2 away win, m3 draw
	wantLabels := []int{0, 2, 1}
	for i, want := range wantLabels {
		if ds.Labels[i] != want {
			t.Errorf("label %d = %d, want %d", i, ds.Labels[i], want)
		}
	}
}

func TestBuildDatasetSkipsRowsItCannotLabel(t *testing.T) {
	base := time.Date(2024, 11, 1, 19, 0, 0, 0, time.UTC)
	tie := sports.Match{
		ID: "b2", Sport: events.SportBasketball, League: "nba",
		HomeTeam: "lakers", AwayTeam: "celtics", Date: base.AddDate(0, 0, 2),
		Odds: sports.MarketOdds{HomeWin: 1.9, AwayWin: 1.95},
		Result: &sports.Result{
			MatchID: "b2", HomeScore: 100, AwayScore: 100, Outcome: sports.OutcomeDraw,
		},
	}
	clean := sports.Match{
		ID: "b1", Sport: events.SportBasketball, League: "nba",
		HomeTeam: "lakers", AwayTeam: "celtics", Date: base,
		Odds: sports.MarketOdds{HomeWin: 1.8, AwayWin: 2.05},
		Result: &sports.Result{
			MatchID: "b1", HomeScore: 110, AwayScore: 98, Outcome: sports.OutcomeHomeWin,
		},
	}

	ds, err := BuildDataset(events.SportBasketball, []sports.Match{tie, clean})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 || ds.Skipped != 1 {
		t.Fatalf("Len/Skipped = %d/%d, want 1/1", ds.Len(), ds.Skipped)
	}
	if len(ds.Classes) != 2 {
		t.Errorf("basketball classes = %d, want 2", len(ds.Classes))
	}
}

func TestBuildDatasetSameDayRematch(t *testing.T) {
	base := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)
	// a doubleheader: the second leg cannot be built leakage-free, but its
	// result must still advance the ratings
	matches := []sports.Match{
		matchAt("g1", "ajax", "psv", base, 1, 0),
		matchAt("g2", "ajax", "psv", base, 0, 2),
		matchAt("g3", "psv", "ajax", base.AddDate(0, 0, 5), 3, 1),
	}

	ds, err := BuildDataset(events.SportSoccer, matches)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 2 || ds.Skipped != 1 {
		t.Fatalf("Len/Skipped = %d/%d, want 2/1", ds.Len(), ds.Skipped)
	}
}
