package model

import "sort"

// Isotonic is a nondecreasing fit produced by pool adjacent violators,
// evaluated by linear interpolation between breakpoints with clamped ends.
type Isotonic struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// FitIsotonic fits scores to binary targets under a monotonicity constraint.
// Ties in score are averaged before pooling.
func FitIsotonic(scores, targets []float64) *Isotonic {
	n := len(scores)
	if n == 0 || n != len(targets) {
		return &Isotonic{}
	}

	type point struct{ x, y, w float64 }
	pts := make([]point, n)
	for i := range scores {
		pts[i] = point{x: scores[i], y: targets[i], w: 1}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	uniq := make([]point, 0, n)
	for _, p := range pts {
		if len(uniq) > 0 && uniq[len(uniq)-1].x == p.x {
			last := &uniq[len(uniq)-1]
			total := last.w + p.w
			last.y = (last.y*last.w + p.y*p.w) / total
			last.w = total
			continue
		}
		uniq = append(uniq, p)
	}

	type block struct{ sum, w, xMin, xMax float64 }
	blocks := make([]block, 0, len(uniq))
	for _, p := range uniq {
		blocks = append(blocks, block{sum: p.y * p.w, w: p.w, xMin: p.x, xMax: p.x})
		// pool while the tail violates monotonicity
		for len(blocks) > 1 {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			if a.sum/a.w <= b.sum/b.w {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{sum: a.sum + b.sum, w: a.w + b.w, xMin: a.xMin, xMax: b.xMax})
		}
	}

	var xs, ys []float64
	for _, b := range blocks {
		mean := b.sum / b.w
		xs = append(xs, b.xMin)
		ys = append(ys, mean)
		if b.xMax > b.xMin {
			xs = append(xs, b.xMax)
			ys = append(ys, mean)
		}
	}
	return &Isotonic{X: xs, Y: ys}
}

// Predict evaluates the fit at p, clamping outside the fitted range.
// An empty fit is the identity.
func (c *Isotonic) Predict(p float64) float64 {
	n := len(c.X)
	if n == 0 {
		return p
	}
	if p <= c.X[0] {
		return c.Y[0]
	}
	if p >= c.X[n-1] {
		return c.Y[n-1]
	}
	i := sort.SearchFloat64s(c.X, p)
	x0, x1 := c.X[i-1], c.X[i]
	y0, y1 := c.Y[i-1], c.Y[i]
	if x1 == x0 {
		return y1
	}
	t := (p - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}

// Points reports the number of fitted breakpoints.
func (c *Isotonic) Points() int { return len(c.X) }
