package metrics

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// BootstrapInterval summarises the distribution of a resampled statistic.
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// BootstrapPairs resamples the (x, y) pairs with replacement sampleSize times,
// evaluates measure on each resample and returns the two-sided interval at
// the given confidence. Resamples where measure is not finite are dropped.
func BootstrapPairs(x, y []float64, measure func(x, y []float64) float64, sampleSize int,
	confidence float64) BootstrapInterval {
	nan := math.NaN()
	if len(x) == 0 || len(x) != len(y) || sampleSize <= 0 {
		return BootstrapInterval{Lower: nan, Upper: nan, StdDev: nan, Mean: nan}
	}

	indexes := lo.Range(len(x))
	data := make([]float64, 0, sampleSize)
	sx := make([]float64, len(x))
	sy := make([]float64, len(y))
	for i := 0; i < sampleSize; i++ {
		for j := range sx {
			k := lo.Sample(indexes)
			sx[j], sy[j] = x[k], y[k]
		}
		v := measure(sx, sy)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, v)
	}
	if len(data) == 0 {
		return BootstrapInterval{Lower: nan, Upper: nan, StdDev: nan, Mean: nan}
	}

	tail := 1 - confidence
	sort.Float64s(data)
	mean, stdDev := stat.MeanStdDev(data, nil)
	return BootstrapInterval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}
