package plot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/tools/log"
	"github.com/rodrigo-brito/psviewer/transform"
)

// Degrees of the trend lines offered by the toolbar.
const (
	LinearTrend = 1
	CubicTrend  = 3
)

// Graph is the time series chart of permanent scatterers. Each series is
// drawn as points, optionally with connecting lines, trend lines, a smooth
// spline, replicas shifted by a fixed distance and indicator curves.
//
// The derived layers of every series are tracked in slots kept in lockstep
// with the series list, so removing a series leaves nothing behind.
type Graph struct {
	*Chart

	settings   model.Settings
	indicators []Indicator

	showLines      bool
	showSmooth     bool
	showDetrended  bool
	showIndicators bool
	trendDegrees   map[int]bool

	replicaDistance float64
	replicaUp       bool
	replicaDown     bool

	origY           [][]any
	points          []*Layer
	lines           []*Layer
	smoothLines     []*Layer
	upReplicas      []*Layer
	downReplicas    []*Layer
	trendLines      []map[int]*Layer
	indicatorLayers [][]*Layer
}

// NewGraph creates an empty graph drawing points with the default settings.
func NewGraph(options ...Option) *Graph {
	g := &Graph{
		Chart:        NewChart(append([]Option{WithFlavor(FlavorScatter)}, options...)...),
		trendDegrees: make(map[int]bool),
	}
	g.pass = g.plot
	g.onAdd = g.addSlots
	g.onRemove = g.removeSlots
	g.UpdateSettings(model.DefaultSettings())
	return g
}

func (g *Graph) addSlots(int) {
	g.origY = append(g.origY, nil)
	g.points = append(g.points, nil)
	g.lines = append(g.lines, nil)
	g.smoothLines = append(g.smoothLines, nil)
	g.upReplicas = append(g.upReplicas, nil)
	g.downReplicas = append(g.downReplicas, nil)
	g.trendLines = append(g.trendLines, make(map[int]*Layer))
	g.indicatorLayers = append(g.indicatorLayers, nil)
}

func (g *Graph) removeSlots(index int) {
	g.origY = removeAt(g.origY, index)
	g.points = removeAt(g.points, index)
	g.lines = removeAt(g.lines, index)
	g.smoothLines = removeAt(g.smoothLines, index)
	g.upReplicas = removeAt(g.upReplicas, index)
	g.downReplicas = removeAt(g.downReplicas, index)
	g.trendLines = removeAt(g.trendLines, index)
	g.indicatorLayers = removeAt(g.indicatorLayers, index)
}

func removeAt[T any](values []T, index int) []T {
	return append(values[:index], values[index+1:]...)
}

// UpdateSettings replaces the visual settings. They apply from the next
// plot pass.
func (g *Graph) UpdateSettings(settings model.Settings) {
	g.settings = settings
	g.SetTextStyle(settings.Title, settings.Labels)
}

// Settings returns the visual settings in use.
func (g *Graph) Settings() model.Settings {
	return g.settings
}

// SetIndicators replaces the indicators drawn by DisplayIndicators.
func (g *Graph) SetIndicators(indicators ...Indicator) {
	g.indicators = indicators
}

func (g *Graph) plot() error {
	g.resetAxes()

	var errs []error
	for idx, s := range g.series {
		g.applyDetrending(idx)

		g.removeLayer(idx, g.points[idx])
		g.points[idx] = nil

		layer, err := g.layerFromValues(StyleScatter, model.NormalizeAll(s.X), model.NormalizeAll(s.Y), g.settings.Points)
		if err != nil {
			log.WithSeries(idx).Errorf("plot failed: %s", err)
			errs = append(errs, fmt.Errorf("series %d: %w", idx, err))
			continue
		}
		layer.Name = s.Name
		g.points[idx] = layer
		s.Layers = append([]*Layer{layer}, s.Layers...)
	}

	g.displayLines()
	for _, degree := range g.TrendDegrees() {
		g.displayTrendLine(true, degree)
	}
	g.displaySmoothLines()
	g.displayReplicas()
	g.displayIndicators()
	return errors.Join(errs...)
}

// applyDetrending swaps the ordinates of the series with their residuals
// from the linear trend, or restores the originals.
func (g *Graph) applyDetrending(idx int) {
	s := g.series[idx]
	switch {
	case g.showDetrended && g.origY[idx] == nil:
		x, y, err := g.numeric(idx)
		var residuals []float64
		if err == nil {
			residuals, err = transform.Detrend(x, y)
		}
		if err != nil {
			log.WithSeries(idx).Warnf("detrending skipped: %s", err)
			return
		}
		g.origY[idx] = s.Y
		s.Y = lo.Map(residuals, func(v float64, _ int) any { return v })

	case !g.showDetrended && g.origY[idx] != nil:
		s.Y = g.origY[idx]
		g.origY[idx] = nil
	}
}

// numeric returns the encoded coordinates of the series at idx.
func (g *Graph) numeric(idx int) (x, y []float64, err error) {
	s := g.series[idx]
	if x, err = encode(model.NormalizeAll(s.X)); err != nil {
		return nil, nil, err
	}
	if y, err = encode(model.NormalizeAll(s.Y)); err != nil {
		return nil, nil, err
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: x has %d values, y has %d", ErrShapeMismatch, len(x), len(y))
	}
	return x, y, nil
}

func (g *Graph) removeLayer(idx int, layer *Layer) {
	if layer == nil {
		return
	}
	g.series[idx].Layers = lo.Without(g.series[idx].Layers, layer)
}

func (g *Graph) addLayer(idx int, layer *Layer) {
	g.series[idx].Layers = append(g.series[idx].Layers, layer)
}

// DisplayLines toggles the lines joining the points of every series.
func (g *Graph) DisplayLines(show bool) {
	g.showLines = show
	g.displayLines()
	g.draw()
}

func (g *Graph) displayLines() {
	for idx, s := range g.series {
		g.removeLayer(idx, g.lines[idx])
		g.lines[idx] = nil
		if !g.showLines {
			continue
		}

		layer, err := g.layerFromValues(StyleLine, model.NormalizeAll(s.X), model.NormalizeAll(s.Y), g.settings.Lines)
		if err != nil {
			log.WithSeries(idx).Warnf("lines not drawn: %s", err)
			continue
		}
		g.lines[idx] = layer
		g.addLayer(idx, layer)
	}
}

// DisplayTrendLine toggles the least-squares polynomial of the given degree
// on every series. Degrees are independent of each other.
func (g *Graph) DisplayTrendLine(show bool, degree int) {
	if show {
		g.trendDegrees[degree] = true
	} else {
		delete(g.trendDegrees, degree)
	}
	g.displayTrendLine(show, degree)
	g.draw()
}

// TrendDegrees lists the degrees of the trend lines shown.
func (g *Graph) TrendDegrees() []int {
	degrees := lo.Keys(g.trendDegrees)
	sort.Ints(degrees)
	return degrees
}

func (g *Graph) displayTrendLine(show bool, degree int) {
	for idx := range g.series {
		if layer, ok := g.trendLines[idx][degree]; ok {
			g.removeLayer(idx, layer)
			delete(g.trendLines[idx], degree)
		}
		if !show {
			continue
		}

		x, y, err := g.numeric(idx)
		var fitted []float64
		if err == nil {
			fitted, err = transform.TrendLine(x, y, degree)
		}
		if err != nil {
			log.WithSeries(idx).Warnf("trend line of degree %d not drawn: %s", degree, err)
			continue
		}

		layer := &Layer{Style: StyleLine, X: x, Y: fitted, Props: g.settings.TrendLines}
		g.trendLines[idx][degree] = layer
		g.addLayer(idx, layer)
	}
}

// DisplaySmoothLines toggles the interpolating spline of every series.
// Series the spline cannot be fitted to are skipped.
func (g *Graph) DisplaySmoothLines(show bool) {
	g.showSmooth = show
	g.displaySmoothLines()
	g.draw()
}

func (g *Graph) displaySmoothLines() {
	for idx := range g.series {
		g.removeLayer(idx, g.smoothLines[idx])
		g.smoothLines[idx] = nil
		if !g.showSmooth {
			continue
		}

		x, y, err := g.numeric(idx)
		var xs, ys []float64
		if err == nil {
			xs, ys, err = transform.Smooth(x, y)
		}
		if err != nil {
			log.WithSeries(idx).Debugf("smooth line not drawn: %s", err)
			continue
		}

		layer := &Layer{Style: StyleLine, X: xs, Y: ys, Props: g.settings.Lines}
		g.smoothLines[idx] = layer
		g.addLayer(idx, layer)
	}
}

// DisplayDetrendedValues shows every series as residuals from its linear
// trend, or restores the original values. Derived layers follow.
func (g *Graph) DisplayDetrendedValues(show bool) {
	if g.showDetrended == show {
		return
	}
	g.showDetrended = show
	log.CheckErr(log.WarnLevel, g.plot())
	g.draw()
}

// Detrended reports whether series are shown detrended.
func (g *Graph) Detrended() bool {
	return g.showDetrended
}

// SetReplicas draws copies of every series shifted up and/or down by
// distance along y.
func (g *Graph) SetReplicas(distance float64, up, down bool) {
	g.replicaDistance = distance
	g.replicaUp, g.replicaDown = up, down
	g.displayReplicas()
	g.draw()
}

func (g *Graph) displayReplicas() {
	for idx := range g.series {
		g.removeLayer(idx, g.upReplicas[idx])
		g.removeLayer(idx, g.downReplicas[idx])
		g.upReplicas[idx], g.downReplicas[idx] = nil, nil
		if !g.replicaUp && !g.replicaDown {
			continue
		}

		x, y, err := g.numeric(idx)
		if err != nil {
			log.WithSeries(idx).Warnf("replicas not drawn: %s", err)
			continue
		}
		if g.replicaUp {
			layer := &Layer{Style: StyleScatter, X: x, Y: transform.Offset(y, g.replicaDistance), Props: g.settings.UpReplicas}
			g.upReplicas[idx] = layer
			g.addLayer(idx, layer)
		}
		if g.replicaDown {
			layer := &Layer{Style: StyleScatter, X: x, Y: transform.Offset(y, -g.replicaDistance), Props: g.settings.DownReplicas}
			g.downReplicas[idx] = layer
			g.addLayer(idx, layer)
		}
	}
}

// DisplayIndicators toggles the indicator curves of every series.
func (g *Graph) DisplayIndicators(show bool) {
	g.showIndicators = show
	g.displayIndicators()
	g.draw()
}

func (g *Graph) displayIndicators() {
	for idx := range g.series {
		for _, layer := range g.indicatorLayers[idx] {
			g.removeLayer(idx, layer)
		}
		g.indicatorLayers[idx] = nil
		if !g.showIndicators || len(g.indicators) == 0 {
			continue
		}

		x, y, err := g.numeric(idx)
		if err != nil {
			log.WithSeries(idx).Warnf("indicators not drawn: %s", err)
			continue
		}
		for _, indicator := range g.indicators {
			if len(x) <= indicator.Warmup() {
				continue
			}
			indicator.Load(x, y)
			for _, metric := range indicator.Metrics() {
				if len(metric.X) == 0 || len(metric.X) != metric.Values.Length() {
					continue
				}
				layer := &Layer{
					Name:  indicator.Name(),
					Style: StyleLine,
					X:     metric.X,
					Y:     metric.Values.Values(),
					Props: model.Props{"c": metric.Color, "ls": metric.Style},
				}
				g.indicatorLayers[idx] = append(g.indicatorLayers[idx], layer)
				g.addLayer(idx, layer)
			}
		}
	}
}

// Data returns the series at index with its original ordinates, also while
// the graph shows detrended values.
func (g *Graph) Data(index int) (model.TimeSeries, bool) {
	s := g.Series(index)
	if s == nil {
		return model.TimeSeries{}, false
	}
	data := s.TimeSeries
	if g.origY[index] != nil {
		data.Y = g.origY[index]
	}
	return data, true
}
