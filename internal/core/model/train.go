package model

import (
	"fmt"
	"math"
	"time"
)

// TrainConfig mirrors the model block of the threshold snapshot.
type TrainConfig struct {
	MinSamples         int
	Folds              int
	CalibrationHoldout float64
	GapDays            int
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.MinSamples <= 0 {
		c.MinSamples = 30
	}
	if c.Folds <= 0 {
		c.Folds = 3
	}
	if c.CalibrationHoldout <= 0 || c.CalibrationHoldout >= 1 {
		c.CalibrationHoldout = 0.20
	}
	return c
}

// FoldReport carries one walk-forward fold's held-out metrics.
type FoldReport struct {
	Fold      int     `json:"fold"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
	Accuracy  float64 `json:"accuracy"`
	LogLoss   float64 `json:"log_loss"`
}

// Report is the training summary persisted beside the artifact.
type Report struct {
	Sport          string       `json:"sport"`
	Samples        int          `json:"samples"`
	Skipped        int          `json:"skipped_rows"`
	CVAccuracyMean float64      `json:"cv_accuracy_mean"`
	CVLogLossMean  float64      `json:"cv_log_loss_mean"`
	ECEBefore      float64      `json:"ece_before"`
	ECEAfter       float64      `json:"ece_after"`
	ECEImprovement float64      `json:"ece_improvement"`
	Folds          []FoldReport `json:"folds"`
	TrainedAt      time.Time    `json:"trained_at"`
}

// Train fits the classifier on a chronological dataset: walk-forward CV for
// honest metrics, a base fit on the early slice with per-class isotonic
// calibrators fitted on the trailing holdout, and a final base refit on every
// row for the served model. The calibrators keep their holdout fit so they
// never score rows they trained on.
func Train(ds *Dataset, cfg TrainConfig) (*Model, *Report, error) {
	cfg = cfg.withDefaults()
	n := ds.Len()
	if n < cfg.MinSamples {
		return nil, nil, fmt.Errorf("%w: %d rows, need %d", ErrInsufficientData, n, cfg.MinSamples)
	}

	folds, err := walkForwardFolds(ds.Dates, cfg.Folds, cfg.GapDays)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{
		Sport:     string(ds.Sport),
		Samples:   n,
		Skipped:   ds.Skipped,
		TrainedAt: time.Now().UTC(),
	}
	k := len(ds.Classes)

	for i, fold := range folds {
		sc, w := fitSlice(ds, fold.TrainIdx, k)
		var correct int
		var ll float64
		for _, idx := range fold.TestIdx {
			p := softmaxScores(w, sc.apply(ds.Rows[idx]))
			if argmax(p) == ds.Labels[idx] {
				correct++
			}
			ll -= math.Log(math.Max(p[ds.Labels[idx]], 1e-15))
		}
		testN := float64(len(fold.TestIdx))
		report.Folds = append(report.Folds, FoldReport{
			Fold:      i + 1,
			TrainSize: len(fold.TrainIdx),
			TestSize:  len(fold.TestIdx),
			Accuracy:  float64(correct) / testN,
			LogLoss:   ll / testN,
		})
	}
	for _, f := range report.Folds {
		report.CVAccuracyMean += f.Accuracy
		report.CVLogLossMean += f.LogLoss
	}
	report.CVAccuracyMean /= float64(len(report.Folds))
	report.CVLogLossMean /= float64(len(report.Folds))

	// chronological calibration split: base on the early slice, isotonic on
	// the trailing holdout
	cut := n - int(float64(n)*cfg.CalibrationHoldout)
	if cut < 1 || cut >= n {
		return nil, nil, fmt.Errorf("%w: holdout %.2f leaves no usable split of %d rows",
			ErrInsufficientData, cfg.CalibrationHoldout, n)
	}

	sc, w := fitSlice(ds, rangeIdx(0, cut), k)

	holdN := n - cut
	rawHold := make([][]float64, holdN)
	holdLabels := make([]int, holdN)
	for i := 0; i < holdN; i++ {
		rawHold[i] = softmaxScores(w, sc.apply(ds.Rows[cut+i]))
		holdLabels[i] = ds.Labels[cut+i]
	}
	report.ECEBefore = ece(rawHold, holdLabels, 10)

	calibrators := make([]*Isotonic, k)
	for c := 0; c < k; c++ {
		scores := make([]float64, holdN)
		targets := make([]float64, holdN)
		for i := range rawHold {
			scores[i] = rawHold[i][c]
			if holdLabels[i] == c {
				targets[i] = 1
			}
		}
		calibrators[c] = FitIsotonic(scores, targets)
	}

	calHold := make([][]float64, holdN)
	for i := range rawHold {
		p := make([]float64, k)
		for c := 0; c < k; c++ {
			p[c] = clamp01(calibrators[c].Predict(rawHold[i][c]))
		}
		calHold[i] = renormalize(p)
	}
	report.ECEAfter = ece(calHold, holdLabels, 10)
	report.ECEImprovement = report.ECEBefore - report.ECEAfter

	// final fit: the served weights must have seen the trailing rows too
	sc, w = fitSlice(ds, rangeIdx(0, n), k)

	m := &Model{
		Variant:     VariantCalibrated,
		Sport:       ds.Sport,
		Classes:     ds.Classes,
		Columns:     ds.Columns,
		Means:       sc.means,
		Stds:        sc.stds,
		Weights:     w,
		Calibrators: calibrators,
		TrainedAt:   report.TrainedAt,
		Samples:     n,
	}
	return m, report, nil
}

func fitSlice(ds *Dataset, idx []int, classes int) (scaler, [][]float64) {
	rows := make([][]float64, len(idx))
	labels := make([]int, len(idx))
	for i, id := range idx {
		rows[i] = ds.Rows[id]
		labels[i] = ds.Labels[id]
	}
	sc := fitScaler(rows)
	std := make([][]float64, len(rows))
	for i, r := range rows {
		std[i] = sc.apply(r)
	}
	return sc, trainSoftmax(std, labels, classes)
}

// ece is the expected calibration error over equal-width confidence bins:
// |accuracy - confidence| per bin, weighted by bin occupancy, using each
// row's top-class probability.
func ece(probs [][]float64, labels []int, bins int) float64 {
	if len(probs) == 0 {
		return 0
	}
	n := float64(len(probs))
	var total float64
	for b := 0; b < bins; b++ {
		lo := float64(b) / float64(bins)
		hi := float64(b+1) / float64(bins)
		var conf, acc, count float64
		for i, p := range probs {
			best := argmax(p)
			c := p[best]
			if c > lo && c <= hi {
				count++
				conf += c
				if best == labels[i] {
					acc++
				}
			}
		}
		if count == 0 {
			continue
		}
		total += math.Abs(acc/count-conf/count) * (count / n)
	}
	return total
}
