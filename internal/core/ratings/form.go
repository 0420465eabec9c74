package ratings

import "math"

// decayedAverage weights points by exp(linspace(-1,0,n)) so the newest entry
// (last in the slice) carries weight 1 and the oldest exp(-1). Weights are
// normalized, so a single entry passes through unchanged.
func decayedAverage(points []float64) float64 {
	n := len(points)
	if n == 0 {
		return 0.5
	}
	if n == 1 {
		return points[0]
	}

	var sum, wsum float64
	step := 1.0 / float64(n-1)
	for i, p := range points {
		w := math.Exp(-1.0 + step*float64(i))
		sum += w * p
		wsum += w
	}
	return sum / wsum
}
