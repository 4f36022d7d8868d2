package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rodrigo-brito/psviewer/tools/metrics"
)

// SecondsPerYear converts Unix-second slopes into yearly rates.
const SecondsPerYear = 365.25 * 24 * 60 * 60

// Velocity is the linear displacement rate of a series.
type Velocity struct {
	PerYear  float64
	Interval metrics.BootstrapInterval
	Points   int
}

// Slope returns the least-squares slope of y over x, NaN when undefined.
func Slope(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}

// YearlyVelocity estimates the displacement rate per year of a series whose x
// values are Unix seconds, with a bootstrap interval at the given confidence.
func YearlyVelocity(x, y []float64, samples int, confidence float64) (Velocity, error) {
	if len(x) != len(y) {
		return Velocity{}, fmt.Errorf("%w: %d != %d", ErrShapeMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return Velocity{}, fmt.Errorf("%w: velocity needs 2 points, got %d", ErrInsufficientData, len(x))
	}

	perYear := func(x, y []float64) float64 {
		return Slope(x, y) * SecondsPerYear
	}

	v := perYear(x, y)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Velocity{}, fmt.Errorf("%w: constant abscissa", ErrDegenerate)
	}

	return Velocity{
		PerYear:  v,
		Interval: metrics.BootstrapPairs(x, y, perYear, samples, confidence),
		Points:   len(x),
	}, nil
}
