package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/events"
)

const eps = 1e-9

// syntheticDataset builds a separable three-class table: each row's label
// column carries a strong signal plus light noise.
func syntheticDataset(n int) *Dataset {
	rng := rand.New(rand.NewSource(7))
	ds := &Dataset{
		Sport:   events.SportSoccer,
		Classes: ClassesFor(events.SportSoccer),
		Columns: []string{"sig_home", "sig_draw", "sig_away", "noise"},
	}
	base := time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		label := i % 3
		row := make([]float64, 4)
		for j := 0; j < 3; j++ {
			row[j] = rng.Float64()*0.6 - 0.3
		}
		row[label] += 5.0
		row[3] = rng.Float64()
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
		ds.Dates = append(ds.Dates, base.AddDate(0, 0, i))
	}
	return ds
}

func TestTrainRejectsSmallDatasets(t *testing.T) {
	_, _, err := Train(syntheticDataset(20), TrainConfig{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
}

func TestTrainEndToEnd(t *testing.T) {
	m, report, err := Train(syntheticDataset(150), TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}

	if !m.Calibrated() {
		t.Error("trained model should carry the calibrated variant tag")
	}
	if m.Samples != 150 {
		t.Errorf("Samples = %d, want 150", m.Samples)
	}
	if len(m.Weights) != 3 || len(m.Calibrators) != 3 {
		t.Fatalf("got %d weight rows / %d calibrators, want 3/3", len(m.Weights), len(m.Calibrators))
	}
	for c, row := range m.Weights {
		if len(row) != len(m.Columns)+1 {
			t.Errorf("weight row %d has %d terms, want %d", c, len(row), len(m.Columns)+1)
		}
	}

	if len(report.Folds) != 3 {
		t.Fatalf("got %d folds, want 3", len(report.Folds))
	}
	if report.CVAccuracyMean < 0.8 {
		t.Errorf("separable data should validate above 0.8, got %v", report.CVAccuracyMean)
	}
	if math.Abs(report.ECEImprovement-(report.ECEBefore-report.ECEAfter)) > eps {
		t.Errorf("ECE improvement %v inconsistent with before %v / after %v",
			report.ECEImprovement, report.ECEBefore, report.ECEAfter)
	}
}

func TestTrainServedWeightsSeeTrailingRows(t *testing.T) {
	ds := syntheticDataset(150)

	// same rows, but the trailing slice tells a different story
	flipped := syntheticDataset(150)
	for i := 130; i < 150; i++ {
		flipped.Labels[i] = (flipped.Labels[i] + 1) % 3
	}

	m1, _, err := Train(ds, TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}
	m2, _, err := Train(flipped, TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}

	var delta float64
	for c := range m1.Weights {
		for j := range m1.Weights[c] {
			delta += math.Abs(m1.Weights[c][j] - m2.Weights[c][j])
		}
	}
	if delta < 1e-6 {
		t.Errorf("weight delta %v: trailing labels left the served weights untouched", delta)
	}
}

func TestPredictProbaSumsToOne(t *testing.T) {
	m, _, err := Train(syntheticDataset(120), TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}

	vectors := []features.Vector{
		{"sig_home": 5.2, "sig_draw": 0.1, "sig_away": -0.2, "noise": 0.5},
		{"sig_home": -0.1, "sig_draw": 4.8, "sig_away": 0.3, "noise": 0.1},
		{"sig_home": 0.0, "sig_draw": 0.0, "sig_away": 0.0, "noise": 0.9},
		{"sig_home": 100, "sig_draw": -100, "sig_away": 0, "noise": 0},
	}
	for i, v := range vectors {
		pred, err := m.PredictProba(v)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for _, p := range pred.Probs {
			if p < 0 || p > 1 {
				t.Errorf("vector %d: probability %v outside [0,1]", i, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > probSumTolerance {
			t.Errorf("vector %d: probabilities sum to %v", i, sum)
		}
	}

	// the class-0 signal pattern should pick home_win
	best, p := mustPredict(t, m, vectors[0]).Best()
	if best != "home_win" || p < 0.5 {
		t.Errorf("Best() = %v %v, want home_win above 0.5", best, p)
	}
}

func mustPredict(t *testing.T, m *Model, v features.Vector) Prediction {
	t.Helper()
	pred, err := m.PredictProba(v)
	if err != nil {
		t.Fatal(err)
	}
	return pred
}

func TestPredictProbaRejectsMissingColumns(t *testing.T) {
	m, _, err := Train(syntheticDataset(90), TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.PredictProba(features.Vector{"sig_home": 1.0})
	if !errors.Is(err, ErrColumnMismatch) {
		t.Fatalf("want ErrColumnMismatch, got %v", err)
	}
}

func TestECEBinning(t *testing.T) {
	// perfectly calibrated: confidence 0.6, accuracy 0.6
	calibrated := make([][]float64, 10)
	labels := make([]int, 10)
	for i := range calibrated {
		calibrated[i] = []float64{0.6, 0.3, 0.1}
		if i < 6 {
			labels[i] = 0
		} else {
			labels[i] = 1
		}
	}
	if got := ece(calibrated, labels, 10); math.Abs(got) > eps {
		t.Errorf("calibrated ece = %v, want 0", got)
	}

	// fully confident but half right
	confident := make([][]float64, 10)
	for i := range confident {
		confident[i] = []float64{1.0, 0.0, 0.0}
		if i < 5 {
			labels[i] = 0
		} else {
			labels[i] = 1
		}
	}
	if got := ece(confident, labels, 10); math.Abs(got-0.5) > eps {
		t.Errorf("overconfident ece = %v, want 0.5", got)
	}
}

func TestCalibrationReducesECEOnSkewedScores(t *testing.T) {
	// base model claims 0.9 but is right only 60% of the time
	n := 100
	raw := make([][]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		raw[i] = []float64{0.9, 0.05, 0.05}
		if i%5 < 3 {
			labels[i] = 0
		} else {
			labels[i] = 1
		}
	}
	before := ece(raw, labels, 10)
	if math.Abs(before-0.3) > eps {
		t.Fatalf("ece before = %v, want 0.3", before)
	}

	k := 3
	calibrators := make([]*Isotonic, k)
	for c := 0; c < k; c++ {
		scores := make([]float64, n)
		targets := make([]float64, n)
		for i := range raw {
			scores[i] = raw[i][c]
			if labels[i] == c {
				targets[i] = 1
			}
		}
		calibrators[c] = FitIsotonic(scores, targets)
	}

	calProbs := make([][]float64, n)
	for i := range raw {
		p := make([]float64, k)
		for c := 0; c < k; c++ {
			p[c] = clamp01(calibrators[c].Predict(raw[i][c]))
		}
		calProbs[i] = renormalize(p)
	}
	after := ece(calProbs, labels, 10)
	if after >= before {
		t.Errorf("calibration did not reduce ece: before %v, after %v", before, after)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, report, err := Train(syntheticDataset(90), TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path, err := Save(m, report, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(MetricsPath(dir, m.Sport)); err != nil {
		t.Errorf("metrics sidecar missing: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Variant != VariantCalibrated {
		t.Errorf("loaded variant %q", loaded.Variant)
	}

	v := features.Vector{"sig_home": 4.9, "sig_draw": 0.2, "sig_away": -0.1, "noise": 0.4}
	orig := mustPredict(t, m, v)
	round := mustPredict(t, loaded, v)
	for i := range orig.Probs {
		if math.Abs(orig.Probs[i]-round.Probs[i]) > 1e-12 {
			t.Errorf("class %d drifted through persistence: %v vs %v", i, orig.Probs[i], round.Probs[i])
		}
	}
}

func TestLoadFailsClosed(t *testing.T) {
	base := `{"variant":"%s","sport":"soccer","classes":["home_win","draw","away_win"],` +
		`"columns":["a","b"],"means":[0,0],"stds":[1,1],` +
		`"weights":[[0,0,0],[0,0,0],[0,0,0]],"trained_at":"2025-01-01T00:00:00Z","samples":50}`

	cases := []struct {
		name string
		body string
	}{
		{"unknown variant", `{"variant":"experimental-v9","sport":"soccer","classes":["home_win","draw","away_win"],"columns":["a","b"],"means":[0,0],"stds":[1,1],"weights":[[0,0,0],[0,0,0],[0,0,0]]}`},
		{"calibrated without calibrators", `{"variant":"` + VariantCalibrated + `","sport":"soccer","classes":["home_win","draw","away_win"],"columns":["a","b"],"means":[0,0],"stds":[1,1],"weights":[[0,0,0],[0,0,0],[0,0,0]]}`},
		{"truncated json", `{"variant":`},
		{"weight shape mismatch", `{"variant":"` + VariantBase + `","sport":"soccer","classes":["home_win","draw","away_win"],"columns":["a","b"],"means":[0,0],"stds":[1,1],"weights":[[0,0,0],[0,0,0]]}`},
		{"scaler length mismatch", `{"variant":"` + VariantBase + `","sport":"soccer","classes":["home_win","draw","away_win"],"columns":["a","b"],"means":[0],"stds":[1,1],"weights":[[0,0,0],[0,0,0],[0,0,0]]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := ArtifactPath(t.TempDir(), events.SportSoccer)
			if err := os.WriteFile(path, []byte(c.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrBadArtifact) {
				t.Errorf("want ErrBadArtifact, got %v", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(ArtifactPath(t.TempDir(), events.SportSoccer))
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("want ErrUnavailable, got %v", err)
		}
	})

	t.Run("base variant loads", func(t *testing.T) {
		path := ArtifactPath(t.TempDir(), events.SportSoccer)
		body := []byte(fmt.Sprintf(base, VariantBase))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			t.Fatal(err)
		}
		m, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if m.Calibrated() {
			t.Error("base artifact should not report calibrated")
		}
	})
}

func TestRegistryCachesAndReloads(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)

	if _, err := reg.Get(events.SportSoccer); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable before any save, got %v", err)
	}

	m, report, err := Train(syntheticDataset(90), TrainConfig{})
	if err != nil {
		t.Fatal(err)
	}
	path, err := Save(m, report, dir)
	if err != nil {
		t.Fatal(err)
	}

	got1, err := reg.Get(events.SportSoccer)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := reg.Get(events.SportSoccer)
	if err != nil {
		t.Fatal(err)
	}
	if got1 != got2 {
		t.Error("unchanged artifact should serve the cached model")
	}

	// touch the artifact so the registry sees a new version
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	got3, err := reg.Get(events.SportSoccer)
	if err != nil {
		t.Fatal(err)
	}
	if got3 == got2 {
		t.Error("changed artifact should reload")
	}

	// a corrupt replacement must fail, not serve stale weights
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	future = future.Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(events.SportSoccer); !errors.Is(err, ErrBadArtifact) {
		t.Errorf("want ErrBadArtifact for corrupt artifact, got %v", err)
	}
}
