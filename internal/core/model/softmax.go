package model

import "math"

const (
	gdIterations = 400
	gdLearnRate  = 0.5
	gdL2         = 1e-3
	gdTolerance  = 1e-7
)

// scaler standardizes feature columns using statistics fitted on training
// rows only. Constant columns pass through as zero.
type scaler struct {
	means []float64
	stds  []float64
}

func fitScaler(rows [][]float64) scaler {
	if len(rows) == 0 {
		return scaler{}
	}
	d := len(rows[0])
	means := make([]float64, d)
	stds := make([]float64, d)
	for _, r := range rows {
		for j, v := range r {
			means[j] += v
		}
	}
	n := float64(len(rows))
	for j := range means {
		means[j] /= n
	}
	for _, r := range rows {
		for j, v := range r {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
	}
	return scaler{means: means, stds: stds}
}

func (sc scaler) apply(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j < len(sc.stds) && sc.stds[j] > 0 {
			out[j] = (v - sc.means[j]) / sc.stds[j]
		}
	}
	return out
}

// trainSoftmax fits multinomial logistic weights by batch gradient descent
// with L2 shrinkage. Rows must already be standardized. Returned weights are
// [class][feature+1], the trailing term being the bias.
func trainSoftmax(rows [][]float64, labels []int, classes int) [][]float64 {
	n := len(rows)
	if n == 0 || classes < 2 {
		return nil
	}
	d := len(rows[0])
	w := make([][]float64, classes)
	for c := range w {
		w[c] = make([]float64, d+1)
	}

	prevLoss := math.Inf(1)
	for iter := 0; iter < gdIterations; iter++ {
		grad := make([][]float64, classes)
		for c := range grad {
			grad[c] = make([]float64, d+1)
		}

		loss := 0.0
		for i, row := range rows {
			p := softmaxScores(w, row)
			loss -= math.Log(math.Max(p[labels[i]], 1e-15))
			for c := 0; c < classes; c++ {
				diff := p[c]
				if c == labels[i] {
					diff -= 1
				}
				for j, v := range row {
					grad[c][j] += diff * v
				}
				grad[c][d] += diff
			}
		}

		inv := 1.0 / float64(n)
		loss *= inv
		for c := 0; c < classes; c++ {
			for j := 0; j <= d; j++ {
				g := grad[c][j] * inv
				if j < d {
					g += gdL2 * w[c][j] // bias is not shrunk
				}
				w[c][j] -= gdLearnRate * g
			}
		}

		if math.Abs(prevLoss-loss) < gdTolerance {
			break
		}
		prevLoss = loss
	}
	return w
}

// softmaxScores returns class probabilities for one standardized row.
func softmaxScores(w [][]float64, row []float64) []float64 {
	k := len(w)
	d := len(row)
	z := make([]float64, k)
	maxZ := math.Inf(-1)
	for c := 0; c < k; c++ {
		s := w[c][d]
		for j, v := range row {
			s += w[c][j] * v
		}
		z[c] = s
		if s > maxZ {
			maxZ = s
		}
	}
	var sum float64
	for c := range z {
		z[c] = math.Exp(z[c] - maxZ)
		sum += z[c]
	}
	for c := range z {
		z[c] /= sum
	}
	return z
}
