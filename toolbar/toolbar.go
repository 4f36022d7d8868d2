// Package toolbar keeps the state of the chart controls and turns every
// change into calls on the graph.
package toolbar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rodrigo-brito/psviewer/plot"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrTitleParam    = errors.New("title param out of range")
)

// Option names accepted by SetOption.
const (
	OptionLines      = "lines"
	OptionSmooth     = "smooth"
	OptionLinRegr    = "linregr"
	OptionPolyRegr   = "polyregr"
	OptionDetrending = "detrending"
	OptionLegend     = "legend"
	OptionLabels     = "labels"
)

// Graph is the chart driven by the controller.
type Graph interface {
	DisplayLines(show bool)
	DisplaySmoothLines(show bool)
	DisplayTrendLine(show bool, degree int)
	DisplayDetrendedValues(show bool)
	DisplayLegend(show bool)
	DisplayGrids(horizontal, vertical bool)
	SetReplicas(distance float64, up, down bool)
	SetLimits(x, y *plot.AxisLimits) error
	SetLabels(x, y string)
	SetTitle(title string)
}

// Options are the display toggles of the graph.
type Options struct {
	Lines      bool `json:"lines"`
	Smooth     bool `json:"smooth"`
	LinRegr    bool `json:"linregr"`
	PolyRegr   bool `json:"polyregr"`
	Detrending bool `json:"detrending"`
	Legend     bool `json:"legend"`
}

// Controller holds the widget state of the chart toolbar.
type Controller struct {
	graph  Graph
	source TitleSource

	options        Options
	labels         bool
	xLabel, yLabel string
	hgrid, vgrid   bool

	replicaText string
	replicaUp   bool
	replicaDown bool

	params     [TitleParams]TitleParam
	xlim, ylim plot.AxisLimits
}

type ControllerOption func(*Controller)

// WithTitleParams sets the labels of the title params.
func WithTitleParams(labels ...string) ControllerOption {
	return func(c *Controller) {
		for i := 0; i < len(labels) && i < TitleParams; i++ {
			c.params[i].Label = labels[i]
		}
	}
}

// WithAxisLabels sets the texts of the axis labels.
func WithAxisLabels(x, y string) ControllerOption {
	return func(c *Controller) {
		c.xLabel, c.yLabel = x, y
	}
}

// WithReplicaDistance sets the text of the replica distance.
func WithReplicaDistance(text string) ControllerOption {
	return func(c *Controller) {
		c.replicaText = text
	}
}

// New creates a controller of graph. The title is built from the feature
// given by source.
func New(graph Graph, source TitleSource, options ...ControllerOption) *Controller {
	c := &Controller{
		graph:       graph,
		source:      source,
		params:      DefaultTitleParams,
		replicaText: "1.0",
		xlim:        plot.NumericLimits(0, 1),
		ylim:        plot.NumericLimits(0, 1),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Init picks the title fields among fieldNames and enables the labels.
func (c *Controller) Init(fieldNames map[int]string) {
	c.params = PopulateTitleParams(fieldNames, c.params)
	c.labels = true
}

// UpdateAll sends the whole state except grids and limits to the graph.
func (c *Controller) UpdateAll() {
	c.UpdateTitle()
	c.UpdateLabels()
	c.UpdateReplicas()
	c.UpdateOptions()
}

// Options returns the display toggles.
func (c *Controller) Options() Options {
	return c.options
}

// SetOptions replaces every display toggle.
func (c *Controller) SetOptions(options Options) {
	c.options = options
	c.UpdateOptions()
}

// OptionMap returns the toggles by name, labels included.
func (c *Controller) OptionMap() map[string]bool {
	return map[string]bool{
		OptionLines:      c.options.Lines,
		OptionSmooth:     c.options.Smooth,
		OptionLinRegr:    c.options.LinRegr,
		OptionPolyRegr:   c.options.PolyRegr,
		OptionDetrending: c.options.Detrending,
		OptionLegend:     c.options.Legend,
		OptionLabels:     c.labels,
	}
}

// SetOption changes one toggle by name.
func (c *Controller) SetOption(name string, enabled bool) error {
	switch strings.ToLower(name) {
	case OptionLines:
		c.options.Lines = enabled
	case OptionSmooth:
		c.options.Smooth = enabled
	case OptionLinRegr:
		c.options.LinRegr = enabled
	case OptionPolyRegr:
		c.options.PolyRegr = enabled
	case OptionDetrending:
		c.options.Detrending = enabled
	case OptionLegend:
		c.options.Legend = enabled
	case OptionLabels:
		c.EnableLabels(enabled)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	c.UpdateOptions()
	return nil
}

// UpdateOptions sends the display toggles to the graph.
func (c *Controller) UpdateOptions() {
	c.graph.DisplayLines(c.options.Lines)
	c.graph.DisplaySmoothLines(c.options.Smooth)
	c.graph.DisplayTrendLine(c.options.LinRegr, plot.LinearTrend)
	c.graph.DisplayTrendLine(c.options.PolyRegr, plot.CubicTrend)
	c.graph.DisplayDetrendedValues(c.options.Detrending)
	c.graph.DisplayLegend(c.options.Legend)
}

// SetGrids toggles the grid lines.
func (c *Controller) SetGrids(horizontal, vertical bool) {
	c.hgrid, c.vgrid = horizontal, vertical
	c.UpdateGrids()
}

func (c *Controller) UpdateGrids() {
	c.graph.DisplayGrids(c.hgrid, c.vgrid)
}

// SetReplicas changes the replica controls. It reports whether the
// distance text is a number and the graph was updated.
func (c *Controller) SetReplicas(distance string, up, down bool) bool {
	c.replicaText = distance
	c.replicaUp, c.replicaDown = up, down
	return c.UpdateReplicas()
}

// Replicas returns the replica controls.
func (c *Controller) Replicas() (distance string, up, down bool) {
	return c.replicaText, c.replicaUp, c.replicaDown
}

// UpdateReplicas sends the replicas to the graph unless the distance text
// is not a number.
func (c *Controller) UpdateReplicas() bool {
	distance, err := strconv.ParseFloat(strings.TrimSpace(c.replicaText), 64)
	if err != nil {
		log.Debugf("replica distance %q ignored: %s", c.replicaText, err)
		return false
	}
	c.graph.SetReplicas(distance, c.replicaUp, c.replicaDown)
	return true
}

// SetLabels changes the texts of the axis labels.
func (c *Controller) SetLabels(x, y string) {
	c.xLabel, c.yLabel = x, y
	c.UpdateLabels()
}

// EnableLabels shows or hides the axis labels.
func (c *Controller) EnableLabels(enabled bool) {
	c.labels = enabled
	c.UpdateLabels()
}

// UpdateLabels sends the axis labels to the graph, empty when disabled.
func (c *Controller) UpdateLabels() {
	if !c.labels {
		c.graph.SetLabels("", "")
		return
	}
	c.graph.SetLabels(c.xLabel, c.yLabel)
}

// TitleParams returns the title params.
func (c *Controller) TitleParams() [TitleParams]TitleParam {
	return c.params
}

// SetTitleParam changes the label and field of the title param i.
func (c *Controller) SetTitleParam(i int, label string, field int) error {
	if i < 0 || i >= TitleParams {
		return fmt.Errorf("%w: %d", ErrTitleParam, i)
	}
	c.params[i] = TitleParam{Label: label, Field: field}
	c.UpdateTitle()
	return nil
}

// UpdateTitle sends the title of the latest feature to the graph, empty
// when no feature is selected.
func (c *Controller) UpdateTitle() {
	title := ""
	if c.source != nil {
		if attributes, ok := c.source.Attributes(); ok {
			title = BuildTitle(c.source.FieldNames(), attributes, c.params[:])
		}
	}
	c.graph.SetTitle(title)
}

// Limits returns the limits shown in the toolbar.
func (c *Controller) Limits() (x, y plot.AxisLimits) {
	return c.xlim, c.ylim
}

// SetLimits changes the limits shown in the toolbar and, with update, sends
// them to the graph.
func (c *Controller) SetLimits(x, y plot.AxisLimits, update bool) error {
	c.xlim, c.ylim = x, y
	if update {
		return c.UpdateLimits()
	}
	return nil
}

// UpdateLimits fixes the graph limits to the ones of the toolbar.
func (c *Controller) UpdateLimits() error {
	x, y := c.xlim, c.ylim
	return c.graph.SetLimits(&x, &y)
}
