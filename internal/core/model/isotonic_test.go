package model

import (
	"math"
	"testing"
)

func TestFitIsotonicPoolsViolators(t *testing.T) {
	// middle point violates monotonicity and pools with its left neighbour
	cal := FitIsotonic([]float64{0.1, 0.2, 0.3}, []float64{1, 0, 1})

	cases := []struct {
		in   float64
		want float64
	}{
		{0.05, 0.5}, // clamped below
		{0.1, 0.5},
		{0.15, 0.5}, // inside the pooled block
		{0.2, 0.5},
		{0.25, 0.75}, // interpolating toward the last block
		{0.3, 1.0},
		{0.9, 1.0}, // clamped above
	}
	for _, c := range cases {
		if got := cal.Predict(c.in); math.Abs(got-c.want) > eps {
			t.Errorf("Predict(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFitIsotonicMonotone(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.3, 0.7, 0.5, 0.2, 0.8, 0.4, 0.6, 0.05}
	targets := []float64{0, 1, 1, 0, 1, 0, 1, 0, 0, 1}
	cal := FitIsotonic(scores, targets)

	for i := 1; i < len(cal.Y); i++ {
		if cal.Y[i] < cal.Y[i-1] {
			t.Fatalf("fitted values decrease at %d: %v > %v", i, cal.Y[i-1], cal.Y[i])
		}
	}
	// predictions follow the same ordering
	prev := math.Inf(-1)
	for p := 0.0; p <= 1.0; p += 0.05 {
		got := cal.Predict(p)
		if got < prev-eps {
			t.Fatalf("Predict not monotone at %v: %v after %v", p, got, prev)
		}
		prev = got
	}
}

func TestFitIsotonicAveragesTies(t *testing.T) {
	cal := FitIsotonic([]float64{0.5, 0.5, 0.5, 0.5}, []float64{1, 0, 1, 1})
	if got := cal.Predict(0.5); math.Abs(got-0.75) > eps {
		t.Errorf("tied scores should average, got %v want 0.75", got)
	}
}

func TestIsotonicEmptyFitIsIdentity(t *testing.T) {
	cal := &Isotonic{}
	if got := cal.Predict(0.42); got != 0.42 {
		t.Errorf("empty calibrator should pass through, got %v", got)
	}
}
