package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapPairs(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{10, 10, 10, 10, 10, 10}
	mean := func(_, y []float64) float64 {
		total := 0.0
		for _, v := range y {
			total += v
		}
		return total / float64(len(y))
	}

	interval := BootstrapPairs(x, y, mean, 100, 0.95)
	require.Equal(t, 10.0, interval.Mean)
	require.Equal(t, 10.0, interval.Lower)
	require.Equal(t, 10.0, interval.Upper)
	require.Equal(t, 0.0, interval.StdDev)
}

func TestBootstrapPairsEmpty(t *testing.T) {
	interval := BootstrapPairs(nil, nil, func(_, _ []float64) float64 { return 1 }, 10, 0.95)
	require.True(t, math.IsNaN(interval.Mean))

	interval = BootstrapPairs([]float64{1}, []float64{1}, func(_, _ []float64) float64 { return math.NaN() }, 10, 0.95)
	require.True(t, math.IsNaN(interval.Lower))
}
