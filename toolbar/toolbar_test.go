package toolbar

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"
)

type fakeGraph struct {
	calls    []string
	title    string
	labels   [2]string
	replicas []float64
	limits   [2]plot.AxisLimits
	trends   map[int]bool
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{trends: make(map[int]bool)}
}

func (f *fakeGraph) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGraph) DisplayLines(show bool) {
	f.record("lines %t", show)
}

func (f *fakeGraph) DisplaySmoothLines(show bool) {
	f.record("smooth %t", show)
}

func (f *fakeGraph) DisplayTrendLine(show bool, degree int) {
	f.trends[degree] = show
	f.record("trend %d %t", degree, show)
}

func (f *fakeGraph) DisplayDetrendedValues(show bool) {
	f.record("detrend %t", show)
}

func (f *fakeGraph) DisplayLegend(show bool) {
	f.record("legend %t", show)
}

func (f *fakeGraph) DisplayGrids(horizontal, vertical bool) {
	f.record("grids %t %t", horizontal, vertical)
}

func (f *fakeGraph) SetReplicas(distance float64, up, down bool) {
	f.replicas = append(f.replicas, distance)
	f.record("replicas %g %t %t", distance, up, down)
}

func (f *fakeGraph) SetLimits(x, y *plot.AxisLimits) error {
	f.limits = [2]plot.AxisLimits{*x, *y}
	f.record("limits")
	return nil
}

func (f *fakeGraph) SetLabels(x, y string) {
	f.labels = [2]string{x, y}
	f.record("labels")
}

func (f *fakeGraph) SetTitle(title string) {
	f.title = title
	f.record("title")
}

type fakeSource struct {
	names      map[int]string
	attributes []any
}

func (f *fakeSource) FieldNames() map[int]string {
	return f.names
}

func (f *fakeSource) Attributes() ([]any, bool) {
	return f.attributes, f.attributes != nil
}

var fieldNames = map[int]string{0: "fid", 1: "CODE", 2: "velocity", 3: "v_stdev", 5: "coherence"}

func TestBuildTitle(t *testing.T) {
	attributes := []any{7, "A12", 1.5, 0.25, "skipped", model.Variant{Type: model.VariantDouble, Raw: "0.9"}}
	params := []TitleParam{{Label: "vel", Field: 2}, {Label: "coh", Field: 5}}
	require.Equal(t, "PS: A12 vel 1.5 coh 0.9", BuildTitle(fieldNames, attributes, params))

	// no code field
	require.Equal(t, " id 7", BuildTitle(map[int]string{0: "fid"}, attributes, []TitleParam{{Label: "id"}}))
	require.Equal(t, "", BuildTitle(nil, nil, nil))

	// a field out of range shows nothing
	require.Equal(t, "PS: A12 x ", BuildTitle(fieldNames, attributes, []TitleParam{{Label: "x", Field: 42}}))
}

func TestPopulateTitleParams(t *testing.T) {
	params := PopulateTitleParams(fieldNames, [TitleParams]TitleParam{
		{Label: "VELOCITY"},
		{Label: "nothing"},
		{Label: "v:"},
	})
	require.Equal(t, 2, params[0].Field)
	require.Equal(t, 0, params[1].Field)
	// an empty prefix matches every field, the last one wins
	require.Equal(t, 5, params[2].Field)

	params = PopulateTitleParams(fieldNames, [TitleParams]TitleParam{{Label: "v_*.d"}, {Label: "v_stdev"}})
	require.Equal(t, 0, params[0].Field)
	require.Equal(t, 3, params[1].Field)

	same := PopulateTitleParams(nil, DefaultTitleParams)
	require.Equal(t, DefaultTitleParams, same)
}

func TestUpdateAll(t *testing.T) {
	graph := newFakeGraph()
	source := &fakeSource{names: fieldNames}
	c := New(graph, source, WithAxisLabels("date", "mm"))
	c.Init(fieldNames)

	c.UpdateAll()
	require.Equal(t, []string{
		"title",
		"labels",
		"replicas 1 false false",
		"lines false",
		"smooth false",
		"trend 1 false",
		"trend 3 false",
		"detrend false",
		"legend false",
	}, graph.calls)
	require.Equal(t, "", graph.title)
	require.Equal(t, [2]string{"date", "mm"}, graph.labels)

	source.attributes = []any{1, "P1", 2.5, 0.5, nil, 0.8}
	c.UpdateTitle()
	require.Equal(t, "PS: P1 velocity 2.5 v_stdev 0.5 coherence 0.8", graph.title)
}

func TestOptions(t *testing.T) {
	graph := newFakeGraph()
	c := New(graph, nil)

	require.NoError(t, c.SetOption("linregr", true))
	require.NoError(t, c.SetOption("PolyRegr", true))
	require.True(t, graph.trends[plot.LinearTrend])
	require.True(t, graph.trends[plot.CubicTrend])

	require.NoError(t, c.SetOption(OptionLinRegr, false))
	require.False(t, graph.trends[plot.LinearTrend])
	require.True(t, graph.trends[plot.CubicTrend])
	require.Equal(t, Options{PolyRegr: true}, c.Options())

	require.ErrorIs(t, c.SetOption("pie", true), ErrUnknownOption)

	c.SetOptions(Options{Lines: true, Detrending: true})
	require.Contains(t, graph.calls, "lines true")
	require.Contains(t, graph.calls, "detrend true")
	require.False(t, graph.trends[plot.CubicTrend])
	require.True(t, c.OptionMap()[OptionLines])
}

func TestLabels(t *testing.T) {
	graph := newFakeGraph()
	c := New(graph, nil)
	c.Init(nil)

	c.SetLabels("date", "displacement")
	require.Equal(t, [2]string{"date", "displacement"}, graph.labels)

	require.NoError(t, c.SetOption(OptionLabels, false))
	require.Equal(t, [2]string{"", ""}, graph.labels)
	require.False(t, c.OptionMap()[OptionLabels])

	c.EnableLabels(true)
	require.Equal(t, [2]string{"date", "displacement"}, graph.labels)
}

func TestReplicas(t *testing.T) {
	graph := newFakeGraph()
	c := New(graph, nil)

	require.True(t, c.SetReplicas(" 2.5", true, false))
	require.Equal(t, []float64{2.5}, graph.replicas)
	require.Contains(t, graph.calls, "replicas 2.5 true false")

	// invalid text sends nothing but is kept
	require.False(t, c.SetReplicas("2,5", true, true))
	require.Equal(t, []float64{2.5}, graph.replicas)
	distance, up, down := c.Replicas()
	require.Equal(t, "2,5", distance)
	require.True(t, up)
	require.True(t, down)
}

func TestGridsAndLimits(t *testing.T) {
	graph := newFakeGraph()
	c := New(graph, nil)

	c.SetGrids(true, false)
	require.Equal(t, []string{"grids true false"}, graph.calls)

	x := plot.DateLimits(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	y := plot.NumericLimits(-5, 5)
	require.NoError(t, c.SetLimits(x, y, false))
	require.Len(t, graph.calls, 1)
	gotX, gotY := c.Limits()
	require.Equal(t, x, gotX)
	require.Equal(t, y, gotY)

	require.NoError(t, c.SetLimits(x, y, true))
	require.Equal(t, [2]plot.AxisLimits{x, y}, graph.limits)
}

func TestTitleParam(t *testing.T) {
	graph := newFakeGraph()
	source := &fakeSource{names: fieldNames, attributes: []any{1, "Q", 3.0, 0.1, nil, 0.7}}
	c := New(graph, source, WithTitleParams("h"))

	require.NoError(t, c.SetTitleParam(1, "c", 5))
	require.Equal(t, "PS: Q h 1 c 0.7 coherence 1", graph.title)
	require.ErrorIs(t, c.SetTitleParam(3, "x", 0), ErrTitleParam)
}

// *plot.Graph is the production implementation.
var _ Graph = (*plot.Graph)(nil)
