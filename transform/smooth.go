package transform

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// SmoothDensity is the number of evaluated points per input point.
const SmoothDensity = 20

// minSplinePoints is the smallest input a cubic interpolating spline accepts.
const minSplinePoints = 4

// Smooth fits an interpolating cubic spline (not-a-knot ends) through (x, y)
// and evaluates it SmoothDensity times per input point over [min(x), max(x)).
// Points are ordered by x first; repeated abscissas make the input degenerate.
func Smooth(x, y []float64) (xs, ys []float64, err error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d != %d", ErrShapeMismatch, len(x), len(y))
	}
	if len(x) < minSplinePoints {
		return nil, nil, fmt.Errorf("%w: spline needs %d points, got %d",
			ErrInsufficientData, minSplinePoints, len(x))
	}
	if hasNaN(x) || hasNaN(y) {
		return nil, nil, fmt.Errorf("%w: NaN or Inf value", ErrDegenerate)
	}

	sx, sy := sortedPairs(x, y)
	for i := 1; i < len(sx); i++ {
		if sx[i] <= sx[i-1] {
			return nil, nil, fmt.Errorf("%w: repeated abscissa %v", ErrDegenerate, sx[i])
		}
	}

	defer func() {
		if r := recover(); r != nil {
			xs, ys = nil, nil
			err = fmt.Errorf("%w: %v", ErrDegenerate, r)
		}
	}()

	var spline interp.NotAKnotCubic
	if err := spline.Fit(sx, sy); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrDegenerate, err)
	}

	xmin, xmax := sx[0], sx[len(sx)-1]
	count := len(sx) * SmoothDensity
	step := (xmax - xmin) / float64(count)
	xs = make([]float64, count)
	ys = make([]float64, count)
	for i := range xs {
		xs[i] = xmin + float64(i)*step
		ys[i] = spline.Predict(xs[i])
	}
	return xs, ys, nil
}

func sortedPairs(x, y []float64) ([]float64, []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	sx := make([]float64, len(x))
	sy := make([]float64, len(y))
	for i, k := range idx {
		sx[i], sy[i] = x[k], y[k]
	}
	return sx, sy
}
