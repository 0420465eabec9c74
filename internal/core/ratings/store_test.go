package ratings

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/charleschow/edgeline/internal/core/sports"
)

const eps = 1e-9

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func resolved(id, home, away string, date time.Time, hs, as int) sports.Match {
	return sports.Match{
		ID: id, Sport: "soccer", League: "premier league",
		HomeTeam: home, AwayTeam: away, Date: date,
		Result: &sports.Result{
			MatchID: id, HomeScore: hs, AwayScore: as,
			Outcome: sports.OutcomeFromScores(hs, as),
		},
	}
}

func TestExpected(t *testing.T) {
	if got := Expected(1500, 1500); math.Abs(got-0.5) > eps {
		t.Errorf("Expected(1500,1500) = %v, want 0.5", got)
	}
	// 1/(1+10^(-200/400)) = 1/(1+10^-0.5)
	want := 1.0 / (1.0 + math.Pow(10, -0.5))
	if got := Expected(1600, 1400); math.Abs(got-want) > eps {
		t.Errorf("Expected(1600,1400) = %v, want %v", got, want)
	}
	// symmetry
	if math.Abs(Expected(1600, 1400)+Expected(1400, 1600)-1.0) > eps {
		t.Error("Expected scores of both sides should sum to 1")
	}
}

func TestApplyResultZeroSum(t *testing.T) {
	s := NewStore()

	// give the sides different ratings first
	if err := s.ApplyResult(resolved("m1", "arsenal", "chelsea", day(0), 3, 0)); err != nil {
		t.Fatal(err)
	}

	before := map[string]float64{}
	for _, team := range []string{"arsenal", "chelsea"} {
		st, err := s.StateAsOf(team, day(5))
		if err != nil {
			t.Fatal(err)
		}
		before[team] = st.Elo
	}

	if err := s.ApplyResult(resolved("m2", "arsenal", "chelsea", day(7), 1, 1)); err != nil {
		t.Fatal(err)
	}

	var dHome, dAway float64
	for team, b := range before {
		st, err := s.StateAsOf(team, day(10))
		if err != nil {
			t.Fatal(err)
		}
		if team == "arsenal" {
			dHome = st.Elo - b
		} else {
			dAway = st.Elo - b
		}
	}
	if math.Abs(dHome+dAway) > eps {
		t.Errorf("rating flow not conserved: home %+v away %+v", dHome, dAway)
	}
	// arsenal was the higher-rated side, so a draw costs it points
	if dHome >= 0 {
		t.Errorf("favorite drawing should lose rating, got %+v", dHome)
	}
}

func TestEqualSidesWinDelta(t *testing.T) {
	s := NewStore()
	if err := s.ApplyResult(resolved("m1", "leeds", "everton", day(0), 2, 0)); err != nil {
		t.Fatal(err)
	}
	home, _ := s.StateAsOf("leeds", day(1))
	away, _ := s.StateAsOf("everton", day(1))

	// equal ratings, K=32: winner gains exactly K/2
	if math.Abs(home.Elo-(InitialElo+16)) > eps {
		t.Errorf("winner elo = %v, want %v", home.Elo, InitialElo+16)
	}
	if math.Abs(away.Elo-(InitialElo-16)) > eps {
		t.Errorf("loser elo = %v, want %v", away.Elo, InitialElo-16)
	}
}

func TestDefaultsForUnknownTeam(t *testing.T) {
	s := NewStore()

	st, err := s.StateAsOf("newly promoted", day(0))
	if err != nil {
		t.Fatal(err)
	}
	if st.Elo != InitialElo || len(st.Recent) != 0 {
		t.Errorf("unknown team state = %+v, want default", st)
	}

	form, err := s.Form("newly promoted", day(0), 5)
	if err != nil {
		t.Fatal(err)
	}
	if form != 0.5 {
		t.Errorf("no-history form = %v, want 0.5", form)
	}

	goals, err := s.RollingGoals("newly promoted", day(0), 10)
	if err != nil {
		t.Fatal(err)
	}
	if goals.ScoredAvg != 1.5 || goals.ConcededAvg != 1.5 || goals.Diff != 0 {
		t.Errorf("no-history goals = %+v, want neutral priors", goals)
	}

	h2h, err := s.HeadToHead("newly promoted", "another", day(0))
	if err != nil {
		t.Fatal(err)
	}
	if h2h.Meetings != 0 || h2h.HomeWinRate != 0.33 || h2h.AvgGoalsHome != 1.5 {
		t.Errorf("no-history h2h = %+v, want neutral priors", h2h)
	}

	ls, err := s.LeagueStrength("unseen league", day(0))
	if err != nil {
		t.Fatal(err)
	}
	if ls != InitialElo {
		t.Errorf("unseen league strength = %v, want %v", ls, InitialElo)
	}
}

func TestChronologyViolations(t *testing.T) {
	s := NewStore()
	if err := s.ApplyResult(resolved("m1", "lyon", "as monaco", day(10), 1, 0)); err != nil {
		t.Fatal(err)
	}

	// applying an older result is a hard error
	err := s.ApplyResult(resolved("m0", "lyon", "lille osc", day(5), 0, 0))
	if !errors.Is(err, ErrChronologyViolation) {
		t.Errorf("out-of-order apply error = %v, want ErrChronologyViolation", err)
	}

	// querying at the last applied date would leak that update
	if _, err := s.StateAsOf("lyon", day(10)); !errors.Is(err, ErrChronologyViolation) {
		t.Errorf("query at last update = %v, want ErrChronologyViolation", err)
	}
	if _, err := s.Form("lyon", day(9), 5); !errors.Is(err, ErrChronologyViolation) {
		t.Errorf("form before last update = %v, want ErrChronologyViolation", err)
	}

	// strictly after is fine
	if _, err := s.StateAsOf("lyon", day(11)); err != nil {
		t.Errorf("query after last update: %v", err)
	}

	// applying with no result attached
	m := resolved("m3", "lyon", "lille osc", day(20), 1, 1)
	m.Result = nil
	if err := s.ApplyResult(m); !errors.Is(err, ErrUnresolved) {
		t.Errorf("apply without result = %v, want ErrUnresolved", err)
	}
}

func TestFormWeightsRecentHighest(t *testing.T) {
	buildForm := func(outcomes []sports.Outcome) float64 {
		s := NewStore()
		for i, out := range outcomes {
			hs, as := 1, 1
			switch out {
			case sports.OutcomeHomeWin:
				hs, as = 2, 0
			case sports.OutcomeAwayWin:
				hs, as = 0, 2
			}
			id := "m" + string(rune('a'+i))
			if err := s.ApplyResult(resolved(id, "psv", "ajax", day(i), hs, as)); err != nil {
				t.Fatal(err)
			}
		}
		f, err := s.Form("psv", day(len(outcomes)), 5)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}

	recentWin := buildForm([]sports.Outcome{
		sports.OutcomeAwayWin, sports.OutcomeAwayWin, sports.OutcomeHomeWin,
	})
	staleWin := buildForm([]sports.Outcome{
		sports.OutcomeHomeWin, sports.OutcomeAwayWin, sports.OutcomeAwayWin,
	})
	if recentWin <= staleWin {
		t.Errorf("recent win form %v should beat stale win form %v", recentWin, staleWin)
	}

	// exact value for win-newest: weights exp(-1), exp(-.5), exp(0)
	w0, w1, w2 := math.Exp(-1), math.Exp(-0.5), 1.0
	want := w2 / (w0 + w1 + w2)
	if math.Abs(recentWin-want) > eps {
		t.Errorf("form = %v, want %v", recentWin, want)
	}
}

func TestRollingWindowCaps(t *testing.T) {
	s := NewStore()
	// 12 straight 2-0 home wins for celtic versus rotating opponents,
	// except the first two which are 0-5 losses that must age out
	for i := 0; i < 12; i++ {
		hs, as := 2, 0
		if i < 2 {
			hs, as = 0, 5
		}
		opp := "opponent-" + string(rune('a'+i))
		if err := s.ApplyResult(resolved("m", "celtic", opp, day(i), hs, as)); err != nil {
			t.Fatal(err)
		}
	}

	goals, err := s.RollingGoals("celtic", day(12), 10)
	if err != nil {
		t.Fatal(err)
	}
	// last 10 are all 2-0
	if math.Abs(goals.ScoredAvg-2.0) > eps || math.Abs(goals.ConcededAvg-0.0) > eps {
		t.Errorf("rolling goals = %+v, early losses should have aged out", goals)
	}

	st, _ := s.StateAsOf("celtic", day(12))
	if len(st.Recent) != 10 {
		t.Errorf("recent window = %d entries, want 10", len(st.Recent))
	}
	if st.Played != 12 {
		t.Errorf("played = %d, want 12", st.Played)
	}
}

func TestHeadToHeadPerspective(t *testing.T) {
	s := NewStore()
	// inter hosts milan and wins 2-0, then milan hosts inter and draws 1-1
	if err := s.ApplyResult(resolved("d1", "inter milan", "milan", day(0), 2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyResult(resolved("d2", "milan", "inter milan", day(30), 1, 1)); err != nil {
		t.Fatal(err)
	}

	fromInter, err := s.HeadToHead("inter milan", "milan", day(60))
	if err != nil {
		t.Fatal(err)
	}
	if fromInter.Meetings != 2 {
		t.Fatalf("meetings = %d, want 2", fromInter.Meetings)
	}
	if math.Abs(fromInter.HomeWinRate-0.5) > eps {
		t.Errorf("inter win rate = %v, want 0.5", fromInter.HomeWinRate)
	}
	if math.Abs(fromInter.AvgGoalsHome-1.5) > eps || math.Abs(fromInter.AvgGoalsAway-0.5) > eps {
		t.Errorf("inter goals = %+v, want 1.5 / 0.5", fromInter)
	}

	fromMilan, err := s.HeadToHead("milan", "inter milan", day(60))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fromMilan.HomeWinRate-0.0) > eps {
		t.Errorf("milan win rate = %v, want 0", fromMilan.HomeWinRate)
	}
	if math.Abs(fromMilan.AvgGoalsHome-0.5) > eps {
		t.Errorf("milan goals for = %v, want 0.5", fromMilan.AvgGoalsHome)
	}
}

func TestLeagueStrengthConserved(t *testing.T) {
	s := NewStore()
	if err := s.ApplyResult(resolved("m1", "girona", "osasuna", day(0), 4, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyResult(resolved("m2", "osasuna", "girona", day(7), 0, 1)); err != nil {
		t.Fatal(err)
	}

	// two-team league: zero-sum updates keep the mean at InitialElo
	ls, err := s.LeagueStrength("premier league", day(10))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ls-InitialElo) > eps {
		t.Errorf("league strength = %v, want %v (rating flow is conserved)", ls, InitialElo)
	}
}
