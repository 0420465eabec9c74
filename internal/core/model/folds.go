package model

import (
	"fmt"
	"time"
)

// Fold is one expanding walk-forward split: train on everything before the
// validation block, never after.
type Fold struct {
	TrainIdx []int
	TestIdx  []int
}

// walkForwardFolds splits n chronologically ordered rows into k expanding
// folds. Each validation block is n/(k+1) rows and training is everything
// before it. gapDays > 0 additionally drops validation rows within that many
// days of the last training row.
func walkForwardFolds(dates []time.Time, k, gapDays int) ([]Fold, error) {
	n := len(dates)
	if k < 1 {
		return nil, fmt.Errorf("model: fold count %d", k)
	}
	testSize := n / (k + 1)
	if testSize < 1 {
		return nil, fmt.Errorf("%w: %d rows cannot fill %d folds", ErrInsufficientData, n, k)
	}

	folds := make([]Fold, 0, k)
	for i := 0; i < k; i++ {
		testStart := n - (k-i)*testSize
		testEnd := testStart + testSize

		fold := Fold{TrainIdx: rangeIdx(0, testStart)}
		cutoff := dates[testStart-1].AddDate(0, 0, gapDays)
		for idx := testStart; idx < testEnd; idx++ {
			if gapDays > 0 && dates[idx].Before(cutoff) {
				continue
			}
			fold.TestIdx = append(fold.TestIdx, idx)
		}
		if len(fold.TestIdx) == 0 {
			continue
		}
		folds = append(folds, fold)
	}
	if len(folds) == 0 {
		return nil, fmt.Errorf("%w: gap trimming left no validation rows", ErrInsufficientData)
	}
	if err := checkFolds(dates, folds); err != nil {
		return nil, err
	}
	return folds, nil
}

// checkFolds enforces the temporal guard: no training row may postdate any
// validation row in its fold. A violation means the dataset was not sorted,
// which would leak future results into training.
func checkFolds(dates []time.Time, folds []Fold) error {
	for i, f := range folds {
		if len(f.TrainIdx) == 0 || len(f.TestIdx) == 0 {
			return fmt.Errorf("model: fold %d has an empty side", i+1)
		}
		var maxTrain time.Time
		for _, idx := range f.TrainIdx {
			if dates[idx].After(maxTrain) {
				maxTrain = dates[idx]
			}
		}
		for _, idx := range f.TestIdx {
			if dates[idx].Before(maxTrain) {
				return fmt.Errorf("model: fold %d trains on rows dated after validation row %d", i+1, idx)
			}
		}
	}
	return nil
}

func rangeIdx(lo, hi int) []int {
	out := make([]int, hi-lo)
	for i := range out {
		out[i] = lo + i
	}
	return out
}
