package plot

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"github.com/rodrigo-brito/psviewer/model"
)

// Style is the drawing primitive of a layer.
type Style string

const (
	StyleScatter   Style = "scatter"
	StyleLine      Style = "line"
	StyleHistogram Style = "hist"
)

// HistogramBins is the bin count of histogram layers.
const HistogramBins = 50

// Layer is a visual element drawn for one series. Coordinates are kept in
// their numeric encoding, dates as Unix seconds.
type Layer struct {
	Name  string
	Style Style
	X     []float64
	Y     []float64
	Props model.Props
}

// Len is the number of points of the layer.
func (l *Layer) Len() int {
	return len(l.X)
}

func (l *Layer) xys() plotter.XYs {
	xys := make(plotter.XYs, 0, len(l.X))
	for i := range l.X {
		if !finite(l.X[i]) || !finite(l.Y[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: l.X[i], Y: l.Y[i]})
	}
	return xys
}

func (l *Layer) values() plotter.Values {
	values := make(plotter.Values, 0, len(l.X))
	for _, v := range l.X {
		if finite(v) {
			values = append(values, v)
		}
	}
	return values
}

// plotter builds the gonum element drawing the layer. Layers without
// finite points draw nothing and return nil.
func (l *Layer) plotter() (plot.Plotter, error) {
	switch l.Style {
	case StyleHistogram:
		values := l.values()
		if len(values) == 0 {
			return nil, nil
		}
		hist, err := plotter.NewHist(values, HistogramBins)
		if err != nil {
			return nil, err
		}
		hist.FillColor = parseColor(l.Props.Get("c", "b"))
		return hist, nil

	case StyleLine:
		xys := l.xys()
		if len(xys) == 0 {
			return nil, nil
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle = lineStyle(l.Props)
		return line, nil

	default:
		xys := l.xys()
		if len(xys) == 0 {
			return nil, nil
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle = glyphStyle(l.Props)
		return scatter, nil
	}
}

// bounds returns the data range of the layer, ok is false when it has none.
func (l *Layer) bounds() (r bounds, ok bool) {
	p, err := l.plotter()
	if err != nil || p == nil {
		return r, false
	}
	ranger, isRanger := p.(plot.DataRanger)
	if !isRanger {
		return r, false
	}
	r.xmin, r.xmax, r.ymin, r.ymax = ranger.DataRange()
	return r, true
}

type bounds struct {
	xmin, xmax, ymin, ymax float64
}

func (b bounds) union(o bounds) bounds {
	return bounds{
		xmin: math.Min(b.xmin, o.xmin),
		xmax: math.Max(b.xmax, o.xmax),
		ymin: math.Min(b.ymin, o.ymin),
		ymax: math.Max(b.ymax, o.ymax),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
