// Package transform computes the curves derived from a base series: polynomial
// trends, smoothing splines, detrended values, vertical replicas and velocity.
// Inputs are numeric-encoded (dates as Unix seconds) and are never modified.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerate       = errors.New("degenerate input")
	ErrShapeMismatch    = errors.New("x and y lengths differ")
)

// Polynomial is a least-squares fit. The variable is centred and scaled
// before the coefficients are applied, which keeps fits on Unix-second
// abscissas well conditioned.
type Polynomial struct {
	// Coefficients in ascending powers of the scaled variable.
	Coefficients []float64
	shift        float64
	scale        float64
}

func (p Polynomial) Degree() int {
	return len(p.Coefficients) - 1
}

// Eval evaluates the polynomial at x.
func (p Polynomial) Eval(x float64) float64 {
	u := (x - p.shift) / p.scale
	y := 0.0
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*u + p.Coefficients[i]
	}
	return y
}

// EvalAll evaluates the polynomial at every x.
func (p Polynomial) EvalAll(x []float64) []float64 {
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = p.Eval(v)
	}
	return y
}

// PolyFit fits a polynomial of the given degree to (x, y) by least squares.
// At least degree+1 points are required.
func PolyFit(x, y []float64, degree int) (Polynomial, error) {
	if degree < 0 {
		return Polynomial{}, fmt.Errorf("invalid degree %d", degree)
	}
	if len(x) != len(y) {
		return Polynomial{}, fmt.Errorf("%w: %d != %d", ErrShapeMismatch, len(x), len(y))
	}
	if len(x) <= degree {
		return Polynomial{}, fmt.Errorf("%w: degree %d needs %d points, got %d",
			ErrInsufficientData, degree, degree+1, len(x))
	}
	if hasNaN(x) || hasNaN(y) {
		return Polynomial{}, fmt.Errorf("%w: NaN or Inf value", ErrDegenerate)
	}

	shift, scale := 0.0, 1.0
	if degree > 0 {
		shift = stat.Mean(x, nil)
		scale = stat.PopStdDev(x, nil)
		if scale == 0 {
			return Polynomial{}, fmt.Errorf("%w: constant abscissa", ErrDegenerate)
		}
	}

	n, cols := len(x), degree+1
	a := mat.NewDense(n, cols, nil)
	for i, v := range x {
		u := (v - shift) / scale
		p := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, p)
			p *= u
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return Polynomial{}, fmt.Errorf("%w: %s", ErrDegenerate, err)
	}

	return Polynomial{
		Coefficients: append([]float64(nil), c.RawVector().Data...),
		shift:        shift,
		scale:        scale,
	}, nil
}

// TrendLine returns the fitted values of a degree polynomial at every x.
func TrendLine(x, y []float64, degree int) ([]float64, error) {
	p, err := PolyFit(x, y, degree)
	if err != nil {
		return nil, err
	}
	return p.EvalAll(x), nil
}

// Detrend subtracts the linear trend from y.
func Detrend(x, y []float64) ([]float64, error) {
	trend, err := TrendLine(x, y, 1)
	if err != nil {
		return nil, err
	}
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - trend[i]
	}
	return residuals, nil
}

// Offset returns y shifted vertically by distance.
func Offset(y []float64, distance float64) []float64 {
	shifted := make([]float64, len(y))
	for i, v := range y {
		shifted[i] = v + distance
	}
	return shifted
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
