package stake

import (
	"math"
	"strings"
	"testing"

	"github.com/charleschow/edgeline/internal/config"
)

const eps = 1e-9

func defaultRules() config.BankrollRules {
	return config.DefaultSnapshot().Bankroll
}

func TestSizeQuarterPointEdge(t *testing.T) {
	rules := defaultRules()
	rules.KellyFraction = 0.10
	rules.MaxBetPercentage = 2.0

	// prob 0.525 at evens-plus pays a 5% EV edge, full Kelly 0.05.
	d := Size(0.525, 2.0, 5000, Context{Rules: rules})

	if d.Reason != "" {
		t.Fatalf("unexpected rejection: %s", d.Reason)
	}
	if math.Abs(d.EVEdge-0.05) > eps {
		t.Errorf("EVEdge = %.10f, want 0.05", d.EVEdge)
	}
	if math.Abs(d.FullKelly-0.05) > eps {
		t.Errorf("FullKelly = %.10f, want 0.05", d.FullKelly)
	}
	if d.Stake != 25.0 {
		t.Errorf("Stake = %.2f, want 25.00 (0.05 kelly x 0.10 fraction x 5000)", d.Stake)
	}
	if maxStake := 5000 * rules.MaxBetPercentage / 100; d.Stake > maxStake {
		t.Errorf("Stake %.2f exceeds %.0f cap", d.Stake, maxStake)
	}
	if math.Abs(d.Fraction-0.005) > eps {
		t.Errorf("Fraction = %.6f, want 0.005", d.Fraction)
	}
	if d.PotentialReturn != 50.0 || d.PotentialProfit != 25.0 {
		t.Errorf("payout = %.2f / %.2f, want 50.00 / 25.00", d.PotentialReturn, d.PotentialProfit)
	}
}

func TestSizeFractionalKelly(t *testing.T) {
	d := Size(0.60, 2.0, 10000, Context{Rules: defaultRules()})

	// full Kelly 0.20, quarter fraction 0.05, exactly at the 5% cap
	if d.Stake != 500.0 {
		t.Errorf("Stake = %.2f, want 500.00", d.Stake)
	}
	if math.Abs(d.FullKelly-0.20) > eps {
		t.Errorf("FullKelly = %.10f, want 0.20", d.FullKelly)
	}
	if d.VolatilityMult != 1 || d.DrawdownMult != 1 {
		t.Errorf("discounts = %.2f / %.2f, want 1 / 1", d.VolatilityMult, d.DrawdownMult)
	}
}

func TestSizeCapBinds(t *testing.T) {
	// full Kelly 0.85 would stake 21.25% of bankroll; the cap takes over
	d := Size(0.90, 3.0, 10000, Context{Rules: defaultRules()})

	if d.Stake != 500.0 {
		t.Errorf("Stake = %.2f, want 500.00 (5%% cap)", d.Stake)
	}
	if math.Abs(d.Fraction-0.05) > eps {
		t.Errorf("Fraction = %.6f, want 0.05", d.Fraction)
	}
}

func TestSizeZeroGates(t *testing.T) {
	cases := []struct {
		name     string
		prob     float64
		odds     float64
		bankroll float64
		mutate   func(*config.BankrollRules)
		wantIn   string
	}{
		{name: "bankroll below floor", prob: 0.60, odds: 2.0, bankroll: 50, wantIn: "below floor"},
		{name: "edge below minimum", prob: 0.50, odds: 2.0, bankroll: 1000, wantIn: "below minimum"},
		{name: "zero probability", prob: 0, odds: 2.0, bankroll: 1000, wantIn: "unusable inputs"},
		{name: "certain probability", prob: 1.0, odds: 2.0, bankroll: 1000, wantIn: "unusable inputs"},
		{name: "odds at evens-or-worse", prob: 0.60, odds: 1.0, bankroll: 1000, wantIn: "unusable inputs"},
		{
			name: "zero kelly with open edge gate", prob: 0.50, odds: 2.0, bankroll: 1000,
			mutate: func(r *config.BankrollRules) { r.MinEdgeToBet = 0 },
			wantIn: "no positive expectation",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := defaultRules()
			if tc.mutate != nil {
				tc.mutate(&rules)
			}
			d := Size(tc.prob, tc.odds, tc.bankroll, Context{Rules: rules})
			if d.Stake != 0 {
				t.Fatalf("Stake = %.2f, want 0", d.Stake)
			}
			if !strings.Contains(d.Reason, tc.wantIn) {
				t.Errorf("Reason = %q, want substring %q", d.Reason, tc.wantIn)
			}
		})
	}
}

func TestVolatilityDiscount(t *testing.T) {
	cases := []struct {
		name      string
		returns   []float64
		wantMult  float64
		wantStake float64
	}{
		{
			name:      "stdev above trigger scales down",
			returns:   []float64{1, -1, 1, -1, 1, -1}, // stdev 1.0 vs trigger 0.8
			wantMult:  0.8,
			wantStake: 400.0,
		},
		{
			name:      "deep swings clamp at the floor",
			returns:   []float64{2.5, -1, 2.5, -1, 2.5, -1}, // stdev 1.75, raw mult 0.457
			wantMult:  0.5,
			wantStake: 250.0,
		},
		{
			name:      "short history is not trusted",
			returns:   []float64{5, -5, 5, -5},
			wantMult:  1,
			wantStake: 500.0,
		},
		{
			name:      "calm history passes through",
			returns:   []float64{0.5, -0.5, 0.5, -0.5, 0.5, -0.5},
			wantMult:  1,
			wantStake: 500.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Size(0.60, 2.0, 10000, Context{Rules: defaultRules(), RecentReturns: tc.returns})
			if math.Abs(d.VolatilityMult-tc.wantMult) > eps {
				t.Errorf("VolatilityMult = %.4f, want %.4f", d.VolatilityMult, tc.wantMult)
			}
			if d.Stake != tc.wantStake {
				t.Errorf("Stake = %.2f, want %.2f", d.Stake, tc.wantStake)
			}
		})
	}
}

func TestDrawdownDiscount(t *testing.T) {
	cases := []struct {
		name      string
		bankroll  float64
		peak      float64
		wantMult  float64
		wantStake float64
	}{
		{
			name:     "halfway to the trigger threshold",
			bankroll: 4500, peak: 10000, // threshold 9000, 4500/9000
			wantMult:  0.5,
			wantStake: 112.50,
		},
		{
			name:     "deep drawdown clamps at the floor",
			bankroll: 2000, peak: 10000, // raw mult 0.222
			wantMult:  0.3,
			wantStake: 30.0,
		},
		{
			name:     "above the trigger nothing happens",
			bankroll: 9500, peak: 10000,
			wantMult:  1,
			wantStake: 475.0,
		},
		{
			name:     "unknown peak disables the discount",
			bankroll: 4500, peak: 0,
			wantMult:  1,
			wantStake: 225.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Size(0.60, 2.0, tc.bankroll, Context{Rules: defaultRules(), PeakBankroll: tc.peak})
			if math.Abs(d.DrawdownMult-tc.wantMult) > eps {
				t.Errorf("DrawdownMult = %.4f, want %.4f", d.DrawdownMult, tc.wantMult)
			}
			if d.Stake != tc.wantStake {
				t.Errorf("Stake = %.2f, want %.2f", d.Stake, tc.wantStake)
			}
		})
	}
}

func TestDiscountsCompound(t *testing.T) {
	ctx := Context{
		Rules:         defaultRules(),
		RecentReturns: []float64{1, -1, 1, -1, 1, -1}, // vol mult 0.8
		PeakBankroll:  10000,                          // dd mult 0.5 at bankroll 4500
	}
	d := Size(0.60, 2.0, 4500, ctx)

	// 0.05 fraction x 0.8 x 0.5 on 4500
	if d.Stake != 90.0 {
		t.Errorf("Stake = %.2f, want 90.00", d.Stake)
	}
	if math.Abs(d.VolatilityMult*d.DrawdownMult-0.4) > eps {
		t.Errorf("combined mult = %.4f, want 0.4", d.VolatilityMult*d.DrawdownMult)
	}
}

func TestMinimumStakeBumps(t *testing.T) {
	t.Run("strong edge bumps to half a percent", func(t *testing.T) {
		rules := defaultRules()
		rules.KellyFraction = 0.05
		// EV edge 8%, raw stake 20 on 10000, bumped to 50
		d := Size(0.36, 3.0, 10000, Context{Rules: rules})
		if d.Stake != 50.0 {
			t.Errorf("Stake = %.2f, want 50.00", d.Stake)
		}
	})

	t.Run("modest edge keeps the raw stake", func(t *testing.T) {
		rules := defaultRules()
		rules.KellyFraction = 0.05
		// EV edge 3% stays under the 5% bump gate
		d := Size(0.515, 2.0, 10000, Context{Rules: rules})
		if d.Stake != 15.0 {
			t.Errorf("Stake = %.2f, want 15.00", d.Stake)
		}
	})

	t.Run("absolute minimum is one unit", func(t *testing.T) {
		rules := defaultRules()
		rules.KellyFraction = 0.10
		// raw stake 0.45 on a 150 bankroll
		d := Size(0.515, 2.0, 150, Context{Rules: rules})
		if d.Stake != 1.0 {
			t.Errorf("Stake = %.2f, want 1.00", d.Stake)
		}
	})
}

func TestSizeRoundsToCents(t *testing.T) {
	d := Size(0.53, 2.0, 777, Context{Rules: defaultRules()})

	// raw 11.655 rounds half away from zero
	if d.Stake != 11.66 {
		t.Errorf("Stake = %.4f, want 11.66", d.Stake)
	}
	if d.PotentialReturn != 23.32 || d.PotentialProfit != 11.66 {
		t.Errorf("payout = %.2f / %.2f, want 23.32 / 11.66", d.PotentialReturn, d.PotentialProfit)
	}
}

func TestSizeParlayInputs(t *testing.T) {
	// combined probability and product odds from a three-leg slip
	d := Size(0.18, 6.79875, 5000, Context{Rules: defaultRules()})

	if d.Reason != "" {
		t.Fatalf("unexpected rejection: %s", d.Reason)
	}
	if math.Abs(d.FullKelly-0.0385902) > 1e-5 {
		t.Errorf("FullKelly = %.7f, want ~0.0385902", d.FullKelly)
	}
	if d.Stake != 48.24 {
		t.Errorf("Stake = %.2f, want 48.24", d.Stake)
	}

	// a negative-EV parlay never gets a stake
	losing := Size(0.1334, 6.79875, 5000, Context{Rules: defaultRules()})
	if losing.Stake != 0 || losing.Reason == "" {
		t.Errorf("negative-EV parlay: Stake = %.2f, Reason = %q, want 0 and a reason", losing.Stake, losing.Reason)
	}
}

func TestSizeNeverNegativeNeverAboveCap(t *testing.T) {
	probs := []float64{0.01, 0.30, 0.36, 0.50, 0.55, 0.62, 0.80, 0.99}
	odds := []float64{1.10, 1.50, 1.85, 2.10, 3.0, 3.50, 8.0}
	// 0.4 sits below the strong-edge bump; the cap still has to hold
	caps := []float64{0.4, 1.0, 2.0, 5.0}
	for _, c := range caps {
		rules := defaultRules()
		rules.MaxBetPercentage = c
		maxStake := 2000 * c / 100
		for _, p := range probs {
			for _, o := range odds {
				d := Size(p, o, 2000, Context{Rules: rules})
				if d.Stake < 0 {
					t.Fatalf("Size(%.2f, %.2f) cap %.1f%% = %.2f, negative stake", p, o, c, d.Stake)
				}
				if d.Stake > maxStake {
					t.Fatalf("Size(%.2f, %.2f) cap %.1f%% = %.2f, above cap %.2f", p, o, c, d.Stake, maxStake)
				}
			}
		}
	}
}

func TestSizeCapBeatsMinimumBumps(t *testing.T) {
	rules := defaultRules()
	rules.KellyFraction = 0.05
	rules.MaxBetPercentage = 0.4

	// EV edge 8% would bump the stake to 50 on 10000, but the cap is 40.
	d := Size(0.36, 3.0, 10000, Context{Rules: rules})
	if d.Stake != 40.0 {
		t.Errorf("Stake = %.2f, want 40.00 (cap)", d.Stake)
	}

	// the one-unit floor loses to the cap too
	rules.MaxBetPercentage = 0.2
	d = Size(0.36, 3.0, 200, Context{Rules: rules})
	if d.Stake != 0.4 {
		t.Errorf("Stake = %.2f, want 0.40 (cap below the unit floor)", d.Stake)
	}
}

func TestFlatStake(t *testing.T) {
	cases := []struct {
		bankroll, pct, want float64
	}{
		{1000, 2.0, 20.0},
		{1234.56, 2.0, 24.69},
		{0, 2.0, 0},
		{1000, 0, 0},
	}
	for _, tc := range cases {
		if got := FlatStake(tc.bankroll, tc.pct); got != tc.want {
			t.Errorf("FlatStake(%.2f, %.1f) = %.2f, want %.2f", tc.bankroll, tc.pct, got, tc.want)
		}
	}
}
