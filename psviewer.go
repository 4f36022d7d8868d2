// Package psviewer shows the displacement time series of permanent
// scatterers selected from a layer.
package psviewer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/StudioSol/set"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/rodrigo-brito/psviewer/feed"
	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"
	"github.com/rodrigo-brito/psviewer/storage"
	"github.com/rodrigo-brito/psviewer/toolbar"
	"github.com/rodrigo-brito/psviewer/tools/log"
	"github.com/rodrigo-brito/psviewer/transform"
)

const (
	defaultDatabase  = "psviewer.db"
	bootstrapSamples = 10000
	confidence       = 0.95
)

var ErrSelection = errors.New("invalid selection")

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04",
	})
}

// Viewer is a chart of the features selected from a layer together with
// its toolbar. Series are kept in selection order.
type Viewer struct {
	layer   *feed.Layer
	storage storage.Storage

	graph    *plot.Graph
	toolbar  *toolbar.Controller
	selected *set.LinkedHashSetINT64
	latest   *feed.Feature

	chartOptions   []plot.Option
	toolbarOptions []toolbar.ControllerOption
	indicators     []plot.Indicator
	samples        int
}

type Option func(*Viewer)

func WithStorage(storage storage.Storage) Option {
	return func(v *Viewer) {
		v.storage = storage
	}
}

func WithLogLevel(level log.Level) Option {
	return func(v *Viewer) {
		log.SetLevel(level)
	}
}

// WithIndicators sets the indicators drawn when indicators are displayed.
func WithIndicators(indicators ...plot.Indicator) Option {
	return func(v *Viewer) {
		v.indicators = indicators
	}
}

// WithTitleParams sets the labels of the attribute values shown in the title.
func WithTitleParams(labels ...string) Option {
	return func(v *Viewer) {
		v.toolbarOptions = append(v.toolbarOptions, toolbar.WithTitleParams(labels...))
	}
}

// WithAxisLabels sets the axis labels of the toolbar.
func WithAxisLabels(x, y string) Option {
	return func(v *Viewer) {
		v.toolbarOptions = append(v.toolbarOptions, toolbar.WithAxisLabels(x, y))
	}
}

// WithChartOptions forwards options to the graph.
func WithChartOptions(options ...plot.Option) Option {
	return func(v *Viewer) {
		v.chartOptions = append(v.chartOptions, options...)
	}
}

// WithBootstrapSamples sets the number of resamples of the velocity interval.
func WithBootstrapSamples(samples int) Option {
	return func(v *Viewer) {
		v.samples = samples
	}
}

// NewViewer creates an empty viewer of layer. Chart settings are read from
// the storage, a buntdb file in the working directory by default.
func NewViewer(layer *feed.Layer, options ...Option) (*Viewer, error) {
	if layer == nil {
		return nil, errors.New("viewer needs a layer")
	}

	v := &Viewer{
		layer:    layer,
		selected: set.NewLinkedHashSetINT64(),
		samples:  bootstrapSamples,
	}
	for _, option := range options {
		option(v)
	}

	var err error
	if v.storage == nil {
		v.storage, err = storage.FromFile(defaultDatabase)
		if err != nil {
			return nil, err
		}
	}

	v.graph = plot.NewGraph(v.chartOptions...)
	v.graph.UpdateSettings(storage.LoadSettings(v.storage))
	v.graph.SetIndicators(v.indicators...)

	v.toolbar = toolbar.New(v.graph, v, v.toolbarOptions...)
	v.toolbar.Init(layer.FieldNames())
	v.toolbar.UpdateAll()
	return v, nil
}

// Graph returns the chart of the viewer.
func (v *Viewer) Graph() *plot.Graph {
	return v.graph
}

// Toolbar returns the controls of the chart.
func (v *Viewer) Toolbar() *toolbar.Controller {
	return v.toolbar
}

// Layer returns the layer the features are read from.
func (v *Viewer) Layer() *feed.Layer {
	return v.layer
}

// FieldNames lists the attribute fields of the layer.
func (v *Viewer) FieldNames() map[int]string {
	return v.layer.FieldNames()
}

// Attributes returns the attributes of the latest added feature.
func (v *Viewer) Attributes() ([]any, bool) {
	if v.latest == nil {
		return nil, false
	}
	return v.latest.Attributes, true
}

// Selected lists the ids of the features on the chart, in series order.
func (v *Viewer) Selected() []int64 {
	ids := make([]int64, 0)
	for id := range v.selected.Iter() {
		ids = append(ids, id)
	}
	return ids
}

// AddFeature appends the time series of a feature to the chart and shows
// its attributes in the title.
func (v *Viewer) AddFeature(id int64) error {
	if lo.Contains(v.Selected(), id) {
		return fmt.Errorf("%w: feature %d already shown", ErrSelection, id)
	}

	ts, err := v.layer.TimeSeries(id)
	if err != nil {
		return err
	}
	if _, err := v.graph.AddTimeSeries(ts); err != nil {
		return err
	}
	v.selected.Add(id)
	v.setLatest(id)

	log.WithField("feature", id).Infof("%s added with %d measurements", ts.Name, ts.Len())
	v.toolbar.UpdateTitle()
	err = v.graph.RequestRefresh()
	v.syncLimits()
	return err
}

func (v *Viewer) setLatest(id int64) {
	feature, ok := v.layer.Feature(id)
	if !ok {
		v.latest = nil
		return
	}
	v.latest = &feature
}

// RemoveSelected removes the series at the given indexes.
func (v *Viewer) RemoveSelected(indexes ...int) error {
	if len(indexes) == 0 {
		return fmt.Errorf("%w: no series selected", ErrSelection)
	}

	ids := v.Selected()
	indexes = lo.Uniq(indexes)
	for _, index := range indexes {
		if index < 0 || index >= len(ids) {
			return fmt.Errorf("%w: no series at %d", ErrSelection, index)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(indexes)))
	for _, index := range indexes {
		v.graph.RemoveSeries(index)
		v.selected.Remove(ids[index])
	}

	remaining := v.Selected()
	if len(remaining) == 0 {
		v.latest = nil
	} else {
		v.setLatest(remaining[len(remaining)-1])
	}
	v.toolbar.UpdateTitle()
	err := v.graph.RequestRefresh()
	v.syncLimits()
	return err
}

// Reload replaces the layer and replots the selected features from it.
// Features missing from the new layer are dropped from the selection.
func (v *Viewer) Reload(layer *feed.Layer) error {
	ids := v.Selected()
	for index := len(ids) - 1; index >= 0; index-- {
		v.graph.RemoveSeries(index)
		v.selected.Remove(ids[index])
	}
	v.layer = layer
	v.latest = nil

	var errs []error
	for _, id := range ids {
		ts, err := layer.TimeSeries(id)
		if err != nil {
			log.WithField("feature", id).Warnf("dropped on reload: %s", err)
			continue
		}
		if _, err := v.graph.AddTimeSeries(ts); err != nil {
			errs = append(errs, err)
			continue
		}
		v.selected.Add(id)
		v.setLatest(id)
	}

	v.toolbar.UpdateTitle()
	errs = append(errs, v.graph.RequestRefresh())
	v.syncLimits()
	return errors.Join(errs...)
}

// Show makes the chart visible and syncs the toolbar limits with it.
func (v *Viewer) Show() error {
	err := v.graph.Show()
	v.syncLimits()
	return err
}

// Hide hides the chart, later changes only mark it dirty.
func (v *Viewer) Hide() {
	v.graph.Hide()
}

func (v *Viewer) syncLimits() {
	x, y := v.graph.Limits()
	log.CheckErr(log.WarnLevel, v.toolbar.SetLimits(x, y, false))
}

// Refresh resends the toolbar state and replots every series. Limits fixed
// by the user are kept.
func (v *Viewer) Refresh() error {
	v.toolbar.UpdateAll()
	err := v.graph.Refresh()
	v.syncLimits()
	return err
}

// SettingsChanged reloads the chart settings from the storage and refreshes.
func (v *Viewer) SettingsChanged() error {
	v.graph.UpdateSettings(storage.LoadSettings(v.storage))
	return v.Refresh()
}

// Render writes the chart, sizes in centimeters.
func (v *Viewer) Render(w io.Writer, width, height float64, format string) error {
	return v.graph.Render(w, width, height, format)
}

// Save writes the chart to file, sizes in centimeters.
func (v *Viewer) Save(file string, width, height float64) error {
	return v.graph.Save(file, width, height)
}

// Close releases the settings storage.
func (v *Viewer) Close() error {
	return v.storage.Close()
}

func numeric(ts model.TimeSeries) (x, y []float64, err error) {
	for i := range ts.X {
		xv, xok := model.Normalize(ts.X[i]).Num()
		yv, yok := model.Normalize(ts.Y[i]).Num()
		if !xok || !yok {
			return nil, nil, fmt.Errorf("%w: point %d of %s", plot.ErrUnplottable, i, ts.Name)
		}
		x = append(x, xv)
		y = append(y, yv)
	}
	return x, y, nil
}

// Summary writes the yearly velocity of every series with its bootstrap
// interval and a histogram of the residuals from the linear trends.
func (v *Viewer) Summary(w io.Writer) error {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"PS", "Points", "From", "To", "Velocity", "Lower 95%", "Upper 95%"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	var (
		velocities []float64
		residuals  []float64
	)
	for i := 0; i < v.graph.Len(); i++ {
		ts, _ := v.graph.Data(i)
		x, y, err := numeric(ts)
		if err != nil {
			log.WithSeries(i).Warnf("summary skipped: %s", err)
			continue
		}

		velocity, err := transform.YearlyVelocity(x, y, v.samples, confidence)
		if err != nil {
			log.WithSeries(i).Warnf("velocity not estimated: %s", err)
			continue
		}
		velocities = append(velocities, velocity.PerYear)

		if r, err := transform.Detrend(x, y); err == nil {
			residuals = append(residuals, r...)
		}

		table.Append([]string{
			ts.Name,
			fmt.Sprintf("%d", velocity.Points),
			model.Normalize(ts.X[0]).String(),
			model.Normalize(ts.X[len(ts.X)-1]).String(),
			fmt.Sprintf("%.3f", velocity.PerYear),
			fmt.Sprintf("%.3f", velocity.Interval.Lower),
			fmt.Sprintf("%.3f", velocity.Interval.Upper),
		})
	}

	mean := math.NaN()
	if len(velocities) > 0 {
		mean = lo.Sum(velocities) / float64(len(velocities))
	}
	table.SetFooter([]string{"MEAN", "", "", "", fmt.Sprintf("%.3f", mean), "", ""})
	table.Render()

	if _, err := fmt.Fprintln(w, buffer.String()); err != nil {
		return err
	}
	if len(residuals) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, "------ RESIDUALS -------"); err != nil {
		return err
	}
	hist := histogram.Hist(15, residuals)
	return histogram.Fprint(w, hist, histogram.Linear(10))
}
