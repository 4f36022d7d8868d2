package plot

import (
	"errors"
	"fmt"
	"io"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

var (
	ErrShapeMismatch = errors.New("series coordinates have different lengths")
	ErrUnplottable   = errors.New("value has no numeric encoding")
)

// Flavor selects the primary visual of every series of a Chart.
type Flavor int

const (
	FlavorLine Flavor = iota
	FlavorHistogram
	FlavorScatter
)

var flavorNames = map[Flavor]string{
	FlavorLine:      "line",
	FlavorHistogram: "histogram",
	FlavorScatter:   "scatter",
}

func (f Flavor) String() string {
	return flavorNames[f]
}

// ParseFlavor maps a flavor name to its Flavor.
func ParseFlavor(name string) (Flavor, error) {
	for flavor, flavorName := range flavorNames {
		if flavorName == name {
			return flavor, nil
		}
	}
	return FlavorLine, fmt.Errorf("unknown chart flavor %q", name)
}

// Series is a stored data series and the layers currently drawn for it.
type Series struct {
	model.TimeSeries
	Layers []*Layer
}

// Chart keeps an ordered list of series and draws one primary layer per
// series on a single set of axes. It is not safe for concurrent use.
type Chart struct {
	flavor Flavor
	series []*Series

	title          string
	xLabel, yLabel string
	titleProps     model.Props
	labelProps     model.Props

	x, y         axis
	hgrid, vgrid bool
	legend       bool
	logY         bool

	dirty   bool
	visible bool
	frames  int

	// pass draws every series. Specialised charts replace it and keep
	// per-series state in lockstep through onAdd and onRemove.
	pass     func() error
	onAdd    func(index int)
	onRemove func(index int)
	onDraw   []func(frame int)
}

// Option configures a Chart.
type Option func(*Chart)

// WithFlavor sets the primary visual of the chart.
func WithFlavor(flavor Flavor) Option {
	return func(chart *Chart) {
		chart.flavor = flavor
	}
}

// WithTitle sets the initial title.
func WithTitle(title string) Option {
	return func(chart *Chart) {
		chart.title = title
	}
}

// WithLabels sets the initial axis labels.
func WithLabels(x, y string) Option {
	return func(chart *Chart) {
		chart.xLabel, chart.yLabel = x, y
	}
}

// WithLogScaleY draws the y axis in logarithmic scale.
func WithLogScaleY() Option {
	return func(chart *Chart) {
		chart.logY = true
	}
}

// WithDrawHook registers a function called after every redraw.
func WithDrawHook(hook func(frame int)) Option {
	return func(chart *Chart) {
		chart.onDraw = append(chart.onDraw, hook)
	}
}

// NewChart creates an empty, hidden chart.
func NewChart(options ...Option) *Chart {
	chart := &Chart{
		flavor:     FlavorLine,
		titleProps: model.DefaultProps(model.KeyTitle),
		labelProps: model.DefaultProps(model.KeyLabels),
		x:          newAxis(),
		y:          newAxis(),
	}
	chart.pass = chart.plotPrimary

	for _, option := range options {
		option(chart)
	}
	return chart
}

// Flavor returns the primary visual of the chart.
func (c *Chart) Flavor() Flavor {
	return c.flavor
}

// AddSeries appends a series and returns its index. x, y and info may be
// nil; non-nil slices must have the same length.
func (c *Chart) AddSeries(x, y, info []any) (int, error) {
	return c.AddTimeSeries(model.TimeSeries{X: x, Y: y, Info: info})
}

// AddTimeSeries appends a named series and returns its index.
func (c *Chart) AddTimeSeries(ts model.TimeSeries) (int, error) {
	if ts.X != nil && ts.Y != nil && len(ts.X) != len(ts.Y) {
		return -1, fmt.Errorf("%w: x has %d values, y has %d", ErrShapeMismatch, len(ts.X), len(ts.Y))
	}
	if ts.Info != nil && len(ts.Info) != ts.Len() {
		return -1, fmt.Errorf("%w: info has %d values, series has %d", ErrShapeMismatch, len(ts.Info), ts.Len())
	}

	c.series = append(c.series, &Series{TimeSeries: ts})
	index := len(c.series) - 1
	if c.onAdd != nil {
		c.onAdd(index)
	}
	c.dirty = true
	return index, nil
}

// RemoveSeries drops the series at index together with its layers. An
// unknown index is logged and ignored.
func (c *Chart) RemoveSeries(index int) {
	if index < 0 || index >= len(c.series) {
		log.WithSeries(index).Warn("series not removed: no such index")
		return
	}

	c.series = append(c.series[:index], c.series[index+1:]...)
	if c.onRemove != nil {
		c.onRemove(index)
	}
	c.dirty = true
}

// Len is the number of stored series.
func (c *Chart) Len() int {
	return len(c.series)
}

// Series returns the stored series at index, nil when out of range.
func (c *Chart) Series(index int) *Series {
	if index < 0 || index >= len(c.series) {
		return nil
	}
	return c.series[index]
}

// ItemAt returns the x and y values of point index of series. Either value
// is nil when the coordinate is absent.
func (c *Chart) ItemAt(series, index int) (x, y any, ok bool) {
	s := c.Series(series)
	if s == nil || index < 0 || index >= s.Len() {
		return nil, nil, false
	}
	if index < len(s.X) {
		x = s.X[index]
	}
	if index < len(s.Y) {
		y = s.Y[index]
	}
	return x, y, true
}

// clearVisuals drops every layer but keeps the data.
func (c *Chart) clearVisuals() {
	for _, s := range c.series {
		s.Layers = nil
	}
}

// Plot runs a plot pass over every series without clearing existing
// layers. Errors of single series are collected and do not stop the pass.
func (c *Chart) Plot() error {
	return c.pass()
}

func (c *Chart) plotPrimary() error {
	c.resetAxes()

	var errs []error
	for idx, s := range c.series {
		x := model.NormalizeAll(s.X)
		y := model.NormalizeAll(s.Y)

		var layer *Layer
		var err error
		switch c.flavor {
		case FlavorHistogram:
			layer, err = c.layerFromValues(StyleHistogram, x, nil, nil)
		case FlavorScatter:
			layer, err = c.layerFromValues(StyleScatter, x, y, nil)
		default:
			layer, err = c.layerFromValues(StyleLine, x, y, nil)
		}
		if err != nil {
			log.WithSeries(idx).Errorf("plot failed: %s", err)
			errs = append(errs, fmt.Errorf("series %d: %w", idx, err))
			continue
		}

		layer.Name = s.Name
		s.Layers = []*Layer{layer}
	}
	return errors.Join(errs...)
}

func (c *Chart) resetAxes() {
	c.x.reset()
	c.y.reset()
}

// layerFromValues encodes normalized values into a layer. The first element
// of each coordinate decides whether its axis shows dates. A nil y builds a
// one dimensional layer.
func (c *Chart) layerFromValues(style Style, x, y []model.Value, props model.Props) (*Layer, error) {
	xs, err := encode(x)
	if err != nil {
		return nil, err
	}

	var ys []float64
	if y != nil {
		if ys, err = encode(y); err != nil {
			return nil, err
		}
		if len(xs) != len(ys) {
			return nil, fmt.Errorf("%w: x has %d values, y has %d", ErrShapeMismatch, len(xs), len(ys))
		}
	}

	if len(x) > 0 && x[0].IsTime() {
		c.x.useDates(x)
	}
	if len(y) > 0 && y[0].IsTime() {
		c.y.useDates(y)
	}
	return &Layer{Style: style, X: xs, Y: ys, Props: props}, nil
}

func encode(values []model.Value) ([]float64, error) {
	encoded := make([]float64, len(values))
	for i, v := range values {
		num, ok := v.Num()
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnplottable, v.String(), i)
		}
		encoded[i] = num
	}
	return encoded, nil
}

// Refresh rebuilds every layer from the stored data, recomputes the limits
// when autoscaling and redraws. The dirty flag is cleared.
func (c *Chart) Refresh() error {
	c.clearVisuals()
	err := c.pass()
	c.relim()
	c.draw()
	c.dirty = false
	return err
}

// relim fits autoscaled axes to the data of the current layers.
func (c *Chart) relim() {
	data, ok := c.dataBounds()
	if !ok {
		return
	}
	if c.x.auto {
		c.x.set(data.xmin, data.xmax)
	}
	if c.y.auto {
		c.y.set(data.ymin, data.ymax)
	}
}

func (c *Chart) dataBounds() (bounds, bool) {
	var result bounds
	found := false
	for _, s := range c.series {
		for _, layer := range s.Layers {
			b, ok := layer.bounds()
			if !ok {
				continue
			}
			if !found {
				result, found = b, true
				continue
			}
			result = result.union(b)
		}
	}
	return result, found
}

func (c *Chart) draw() {
	c.frames++
	for _, hook := range c.onDraw {
		hook(c.frames)
	}
}

// Frames counts the redraws so far.
func (c *Chart) Frames() int {
	return c.frames
}

// SetDirty marks the chart for a rebuild on the next Show.
func (c *Chart) SetDirty(dirty bool) {
	c.dirty = dirty
}

// Dirty reports whether the layers are out of date.
func (c *Chart) Dirty() bool {
	return c.dirty
}

// Show makes the chart visible, refreshing it first when dirty.
func (c *Chart) Show() error {
	c.visible = true
	if c.dirty {
		return c.Refresh()
	}
	return nil
}

// Hide makes the chart invisible. Data and layers are kept.
func (c *Chart) Hide() {
	c.visible = false
}

// Visible reports whether the chart is shown.
func (c *Chart) Visible() bool {
	return c.visible
}

// RequestRefresh marks the chart dirty and refreshes it at once if visible.
func (c *Chart) RequestRefresh() error {
	c.dirty = true
	if c.visible {
		return c.Refresh()
	}
	return nil
}

// Title returns the current title.
func (c *Chart) Title() string {
	return c.title
}

// SetTitle replaces the title and redraws.
func (c *Chart) SetTitle(title string) {
	c.title = title
	c.draw()
}

// Labels returns the current axis labels.
func (c *Chart) Labels() (x, y string) {
	return c.xLabel, c.yLabel
}

// SetLabels replaces the axis labels and redraws.
func (c *Chart) SetLabels(x, y string) {
	c.xLabel, c.yLabel = x, y
	c.draw()
}

// SetTextStyle sets the style bundles of the title and the axis labels.
func (c *Chart) SetTextStyle(title, labels model.Props) {
	c.titleProps = title.Copy()
	c.labelProps = labels.Copy()
}

// Limits returns the visible range of both axes. Bounds of a date axis
// are date-times.
func (c *Chart) Limits() (x, y AxisLimits) {
	return c.x.limits(), c.y.limits()
}

// SetLimits fixes the visible range of the given axes, disabling their
// autoscale, and redraws. A nil argument leaves its axis unchanged.
func (c *Chart) SetLimits(x, y *AxisLimits) error {
	if x != nil {
		min, max, err := x.encode()
		if err != nil {
			return err
		}
		c.x.set(min, max)
		c.x.auto = false
	}
	if y != nil {
		min, max, err := y.encode()
		if err != nil {
			return err
		}
		c.y.set(min, max)
		c.y.auto = false
	}
	c.draw()
	return nil
}

// Autoscale fits both axes to the data again and keeps them fitted on
// future refreshes.
func (c *Chart) Autoscale() {
	c.x.auto, c.y.auto = true, true
	c.relim()
	c.draw()
}

// Autoscaling reports whether each axis follows the data.
func (c *Chart) Autoscaling() (x, y bool) {
	return c.x.auto, c.y.auto
}

// DisplayGrids toggles the major grid lines: horizontal lines belong to the
// y axis, vertical ones to the x axis.
func (c *Chart) DisplayGrids(horizontal, vertical bool) {
	c.hgrid, c.vgrid = horizontal, vertical
	c.draw()
}

// Grids reports which grid lines are shown.
func (c *Chart) Grids() (horizontal, vertical bool) {
	return c.hgrid, c.vgrid
}

// DisplayLegend toggles the legend with the series names.
func (c *Chart) DisplayLegend(show bool) {
	c.legend = show
	c.draw()
}

// Render writes the chart in the given format (svg, png, pdf, ...) with
// the size expressed in centimeters.
func (c *Chart) Render(w io.Writer, width, height float64, format string) error {
	p, err := c.Figure()
	if err != nil {
		return err
	}
	writer, err := p.WriterTo(centimeters(width), centimeters(height), format)
	if err != nil {
		return err
	}
	_, err = writer.WriteTo(w)
	return err
}

// Save writes the chart to file, the format follows the file extension.
func (c *Chart) Save(file string, width, height float64) error {
	p, err := c.Figure()
	if err != nil {
		return err
	}
	return p.Save(centimeters(width), centimeters(height), file)
}
