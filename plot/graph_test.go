package plot

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/psviewer/model"
)

type constantIndicator struct {
	x []float64
}

func (c *constantIndicator) Name() string { return "constant" }

func (c *constantIndicator) Warmup() int { return 2 }

func (c *constantIndicator) Load(x, _ []float64) { c.x = x }

func (c *constantIndicator) Metrics() []IndicatorMetric {
	values := make(model.Series[float64], len(c.x))
	return []IndicatorMetric{{Name: "zero", Color: "g", X: c.x, Values: values}}
}

func newTestGraph(t *testing.T, ys ...[]any) *Graph {
	t.Helper()
	g := NewGraph()
	for _, y := range ys {
		x := dates(0, 30, 60, 90, 120, 150)[:len(y)]
		_, err := g.AddSeries(x, y, nil)
		require.NoError(t, err)
	}
	require.NoError(t, g.Refresh())
	return g
}

func requireSlots(t *testing.T, g *Graph) {
	t.Helper()
	n := g.Len()
	require.Len(t, g.origY, n)
	require.Len(t, g.points, n)
	require.Len(t, g.lines, n)
	require.Len(t, g.smoothLines, n)
	require.Len(t, g.trendLines, n)
	require.Len(t, g.upReplicas, n)
	require.Len(t, g.downReplicas, n)
	require.Len(t, g.indicatorLayers, n)
}

func TestGraphSlotsLockstep(t *testing.T) {
	g := newTestGraph(t, []any{1, 2, 3}, []any{4, 5, 6}, []any{7, 8, 9})
	requireSlots(t, g)
	for i := 0; i < g.Len(); i++ {
		require.Same(t, g.points[i], g.Series(i).Layers[0])
		require.Equal(t, StyleScatter, g.points[i].Style)
	}

	third := g.points[2]
	g.RemoveSeries(1)
	requireSlots(t, g)
	require.Same(t, third, g.points[1])

	require.NoError(t, g.Refresh())
	for i := 0; i < g.Len(); i++ {
		require.Len(t, g.Series(i).Layers, 1)
	}
}

func TestGraphLines(t *testing.T) {
	g := newTestGraph(t, []any{1, 2, 3}, []any{4, 5, 6})

	g.DisplayLines(true)
	for i := 0; i < g.Len(); i++ {
		require.NotNil(t, g.lines[i])
		require.Contains(t, g.Series(i).Layers, g.lines[i])
	}

	// derived layers survive a refresh
	require.NoError(t, g.Refresh())
	require.Len(t, g.Series(0).Layers, 2)

	g.DisplayLines(false)
	require.Nil(t, g.lines[0])
	require.Len(t, g.Series(0).Layers, 1)
}

func TestGraphTrendLineIdempotent(t *testing.T) {
	g := newTestGraph(t, []any{1.0, 2.0, 2.5, 4.5})

	g.DisplayTrendLine(true, LinearTrend)
	g.DisplayTrendLine(true, LinearTrend)
	require.Len(t, g.trendLines[0], 1)
	require.Len(t, g.Series(0).Layers, 2)

	g.DisplayTrendLine(true, CubicTrend)
	linear := g.trendLines[0][LinearTrend]
	require.Len(t, g.Series(0).Layers, 3)
	require.Equal(t, []int{LinearTrend, CubicTrend}, g.TrendDegrees())

	g.DisplayTrendLine(false, CubicTrend)
	require.Same(t, linear, g.trendLines[0][LinearTrend])
	require.Len(t, g.Series(0).Layers, 2)

	// hiding a degree that is not shown changes nothing
	g.DisplayTrendLine(false, 2)
	require.Len(t, g.Series(0).Layers, 2)
	require.Equal(t, []int{LinearTrend}, g.TrendDegrees())

	x, _ := numericOf(t, g, 0)
	require.Equal(t, x, linear.X)
}

func numericOf(t *testing.T, g *Graph, idx int) ([]float64, []float64) {
	t.Helper()
	x, y, err := g.numeric(idx)
	require.NoError(t, err)
	return x, y
}

func TestGraphTrendLineDegenerate(t *testing.T) {
	g := newTestGraph(t, []any{1.0}, []any{1.0, 2.0, 4.0})
	g.DisplayTrendLine(true, LinearTrend)
	require.NotContains(t, g.trendLines[0], LinearTrend)
	require.Contains(t, g.trendLines[1], LinearTrend)
}

func TestGraphDetrendRoundTrip(t *testing.T) {
	original := []any{1.0, 2.5, 2.0, 4.25, 3.5}
	single := []any{7.0}
	g := newTestGraph(t, original, single)
	before := append([]any(nil), g.Series(0).Y...)

	g.DisplayDetrendedValues(true)
	require.True(t, g.Detrended())
	require.NotEqual(t, before, g.Series(0).Y)
	_, residuals := numericOf(t, g, 0)
	sum := 0.0
	for _, r := range residuals {
		sum += r
	}
	assert.InDelta(t, 0, sum, 1e-9)

	// a single point cannot be detrended and is kept as is
	require.Equal(t, single, g.Series(1).Y)

	data, ok := g.Data(0)
	require.True(t, ok)
	require.Equal(t, before, data.Y)

	// repeated toggles are no-ops
	frames := g.Frames()
	g.DisplayDetrendedValues(true)
	require.Equal(t, frames, g.Frames())

	g.DisplayDetrendedValues(false)
	require.Equal(t, before, g.Series(0).Y)
	require.Nil(t, g.origY[0])

	require.NoError(t, g.Refresh())
	require.Equal(t, before, g.Series(0).Y)
}

func TestGraphSmoothLines(t *testing.T) {
	g := newTestGraph(t, []any{1.0, 3.0, 2.0, 5.0, 4.0, 6.0}, []any{1.0, 2.0})

	g.DisplaySmoothLines(true)
	require.NotNil(t, g.smoothLines[0])
	require.Equal(t, 6*20, g.smoothLines[0].Len())
	// too short for a spline, silently skipped
	require.Nil(t, g.smoothLines[1])
	require.Len(t, g.Series(1).Layers, 1)
}

func TestGraphReplicas(t *testing.T) {
	g := newTestGraph(t, []any{1, 2, 3}, []any{4, 5, 6})

	g.SetReplicas(1, true, false)
	for i, base := range [][]float64{{1, 2, 3}, {4, 5, 6}} {
		x, _ := numericOf(t, g, i)
		up := g.upReplicas[i]
		require.NotNil(t, up)
		require.Equal(t, x, up.X)
		require.Equal(t, []float64{base[0] + 1, base[1] + 1, base[2] + 1}, up.Y)
		require.Nil(t, g.downReplicas[i])
		require.Len(t, g.Series(i).Layers, 2)
	}

	g.SetReplicas(0.5, false, true)
	require.Nil(t, g.upReplicas[0])
	require.Equal(t, []float64{0.5, 1.5, 2.5}, g.downReplicas[0].Y)
	require.Len(t, g.Series(0).Layers, 2)

	// the data itself is untouched
	require.Equal(t, []any{1, 2, 3}, g.Series(0).Y)

	// replicas share the encoded dates of the points
	encoded := lo.Map(dates(0, 30, 60), func(d any, _ int) float64 {
		return model.TimeToNum(d.(model.Date).Time)
	})
	require.Equal(t, encoded, g.downReplicas[0].X)
	require.Equal(t, encoded, g.points[0].X)
}

func TestGraphIndicators(t *testing.T) {
	g := newTestGraph(t, []any{1.0, 2.0, 3.0, 4.0}, []any{1.0, 2.0})
	g.SetIndicators(&constantIndicator{})

	g.DisplayIndicators(true)
	require.Len(t, g.indicatorLayers[0], 1)
	require.Equal(t, []float64{0, 0, 0, 0}, g.indicatorLayers[0][0].Y)
	// not enough points for the warmup
	require.Empty(t, g.indicatorLayers[1])

	g.DisplayIndicators(false)
	require.Empty(t, g.indicatorLayers[0])
	require.Len(t, g.Series(0).Layers, 1)
}

func TestGraphSettings(t *testing.T) {
	g := newTestGraph(t, []any{1, 2})
	require.Equal(t, "s", g.points[0].Props.Get("marker", ""))

	settings := model.DefaultSettings()
	settings.Points = model.Props{"marker": "o", "c": "r"}
	g.UpdateSettings(settings)
	// settings apply on the next pass only
	require.Equal(t, "s", g.points[0].Props.Get("marker", ""))

	require.NoError(t, g.Refresh())
	require.Equal(t, "o", g.points[0].Props.Get("marker", ""))
}
