// Package model trains, persists, and serves the match outcome classifier:
// standardized softmax regression with per-class isotonic calibration fitted
// on a chronological holdout. Temporal honesty is the whole point here, so
// every split, fold, and holdout respects date order and fails loudly when
// it cannot.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
)

// Variant tags persisted in artifacts. Loading is fail closed: a tag this
// build does not recognize is an error, never a best-effort parse.
const (
	VariantCalibrated = "calibrated-isotonic-v1"
	VariantBase       = "softmax-base-v1"
)

var (
	ErrInsufficientData = errors.New("model: insufficient training data")
	ErrUnavailable      = errors.New("model: no artifact available")
	ErrBadArtifact      = errors.New("model: artifact failed validation")
	ErrColumnMismatch   = errors.New("model: feature vector does not cover artifact columns")
)

// probSumTolerance bounds how far a calibrated distribution may sit from 1
// after renormalization.
const probSumTolerance = 1e-6

// Model is a trained classifier. Classes order matches the weight rows and
// calibrator slots.
type Model struct {
	Variant     string
	Sport       events.Sport
	Classes     []sports.Outcome
	Columns     []string
	Means       []float64
	Stds        []float64
	Weights     [][]float64
	Calibrators []*Isotonic
	TrainedAt   time.Time
	Samples     int
}

// Calibrated reports whether per-class calibration is active.
func (m *Model) Calibrated() bool { return m.Variant == VariantCalibrated }

// Prediction is the class distribution for one match.
type Prediction struct {
	Classes []sports.Outcome
	Probs   []float64
}

// For returns the probability of an outcome, zero when the model does not
// know the class.
func (p Prediction) For(out sports.Outcome) float64 {
	for i, c := range p.Classes {
		if c == out {
			return p.Probs[i]
		}
	}
	return 0
}

// Best returns the most likely outcome and its probability.
func (p Prediction) Best() (sports.Outcome, float64) {
	if len(p.Probs) == 0 {
		return "", 0
	}
	i := argmax(p.Probs)
	return p.Classes[i], p.Probs[i]
}

// PredictProba computes the class distribution for a feature vector. The
// returned probabilities sum to one within probSumTolerance.
func (m *Model) PredictProba(v features.Vector) (Prediction, error) {
	for _, col := range m.Columns {
		if _, ok := v[col]; !ok {
			return Prediction{}, fmt.Errorf("%w: missing %q", ErrColumnMismatch, col)
		}
	}

	row := scaler{means: m.Means, stds: m.Stds}.apply(v.Values(m.Columns))
	raw := softmaxScores(m.Weights, row)

	probs := raw
	if m.Calibrated() {
		probs = make([]float64, len(raw))
		for i, cal := range m.Calibrators {
			probs[i] = clamp01(cal.Predict(raw[i]))
		}
		probs = renormalize(probs)
	}
	return Prediction{Classes: m.Classes, Probs: probs}, nil
}

// renormalize scales a nonnegative vector to sum one. A degenerate all-zero
// vector becomes uniform rather than NaN.
func renormalize(p []float64) []float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	if sum < 1e-12 {
		u := 1.0 / float64(len(p))
		for i := range p {
			p[i] = u
		}
		return p
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func argmax(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}
