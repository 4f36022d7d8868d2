package psviewer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/psviewer/feed"
	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/storage"
)

func newTestViewer(t *testing.T) (*Viewer, storage.Storage) {
	t.Helper()
	layer, err := feed.FromRecords("ps", [][]string{
		{"id", "code", "velocity", "coherence", "D20200101", "D20200301", "D20200501", "D20200701", "D20200901"},
		{"1", "A1", "1.5", "0.9", "0", "1", "2.5", "3", "4.5"},
		{"2", "A2", "-2", "0.8", "0", "-0.5", "-1", "-2", "-2.5"},
		{"3", "A3", "0.1", "0.7", "1", "", "", "", ""},
	})
	require.NoError(t, err)

	settings, err := storage.FromMemory()
	require.NoError(t, err)

	viewer, err := NewViewer(layer, WithStorage(settings), WithBootstrapSamples(200),
		WithTitleParams("velocity", "coherence", "fid"), WithAxisLabels("date", "mm"))
	require.NoError(t, err)
	require.NoError(t, viewer.Show())
	t.Cleanup(func() { _ = viewer.Close() })
	return viewer, settings
}

func TestViewerSelection(t *testing.T) {
	viewer, _ := newTestViewer(t)

	require.NoError(t, viewer.AddFeature(1))
	require.NoError(t, viewer.AddFeature(2))
	require.Equal(t, []int64{1, 2}, viewer.Selected())
	require.Equal(t, 2, viewer.Graph().Len())
	require.Equal(t, "PS: A2 velocity -2 coherence 0.8 fid 2", viewer.Graph().Title())

	require.ErrorIs(t, viewer.AddFeature(2), ErrSelection)
	require.ErrorIs(t, viewer.AddFeature(42), feed.ErrFeatureNotFound)
	require.Equal(t, 2, viewer.Graph().Len())

	require.ErrorIs(t, viewer.RemoveSelected(), ErrSelection)
	require.ErrorIs(t, viewer.RemoveSelected(0, 5), ErrSelection)
	require.Equal(t, 2, viewer.Graph().Len())

	require.NoError(t, viewer.RemoveSelected(1))
	require.Equal(t, []int64{1}, viewer.Selected())
	require.Equal(t, "PS A1", viewer.Graph().Series(0).Name)
	require.Equal(t, "PS: A1 velocity 1.5 coherence 0.9 fid 1", viewer.Graph().Title())

	require.NoError(t, viewer.AddFeature(3))
	require.NoError(t, viewer.AddFeature(2))
	require.NoError(t, viewer.RemoveSelected(2, 0, 2))
	require.Equal(t, []int64{3}, viewer.Selected())

	require.NoError(t, viewer.RemoveSelected(0))
	require.Empty(t, viewer.Selected())
	require.Equal(t, "", viewer.Graph().Title())
}

func TestViewerKeepsLimits(t *testing.T) {
	viewer, _ := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))

	_, y := viewer.Graph().Limits()
	require.Equal(t, model.FloatValue(0), y.Min)
	require.Equal(t, model.FloatValue(4.5), y.Max)

	x, _ := viewer.Toolbar().Limits()
	require.Equal(t, "2020-01-01 00:00:00", x.Min.String())

	// limits typed in the toolbar survive refreshes and new series
	_, y = viewer.Toolbar().Limits()
	y.Max = model.FloatValue(10)
	require.NoError(t, viewer.Toolbar().SetLimits(x, y, true))
	require.NoError(t, viewer.AddFeature(2))
	require.NoError(t, viewer.Refresh())

	_, got := viewer.Graph().Limits()
	require.Equal(t, model.FloatValue(10), got.Max)
	require.Equal(t, model.FloatValue(0), got.Min)
}

func TestViewerSettingsChanged(t *testing.T) {
	viewer, settings := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))

	changed := model.DefaultSettings()
	changed.Points = model.Props{"marker": "o", "c": "g"}
	require.NoError(t, storage.SaveSettings(settings, changed))

	// nothing changes until the viewer is told
	require.Equal(t, "s", viewer.Graph().Series(0).Layers[0].Props.Get("marker", ""))

	require.NoError(t, viewer.SettingsChanged())
	require.Equal(t, "o", viewer.Graph().Series(0).Layers[0].Props.Get("marker", ""))
	require.Equal(t, "PS: A1 velocity 1.5 coherence 0.9 fid 1", viewer.Graph().Title())
}

func TestViewerOptions(t *testing.T) {
	viewer, _ := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))
	require.NoError(t, viewer.AddFeature(2))

	require.NoError(t, viewer.Toolbar().SetOption("detrending", true))
	require.True(t, viewer.Graph().Detrended())

	data, ok := viewer.Graph().Data(0)
	require.True(t, ok)
	require.Equal(t, model.FloatValue(4.5), model.Normalize(data.Y[4]))

	// a new feature is shown detrended too
	require.NoError(t, viewer.RemoveSelected(1))
	require.NoError(t, viewer.AddFeature(2))
	_, y := viewer.Graph().Limits()
	require.Less(t, y.Max.Float, 4.5)

	require.True(t, viewer.Toolbar().SetReplicas("0.5", true, true))
	require.Len(t, viewer.Graph().Series(1).Layers, 3)
}

func TestViewerSummary(t *testing.T) {
	viewer, _ := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))
	require.NoError(t, viewer.AddFeature(3))

	var buf bytes.Buffer
	require.NoError(t, viewer.Summary(&buf))
	out := buf.String()
	require.Contains(t, out, "PS A1")
	// a single measurement has no velocity
	require.NotContains(t, out, "PS A3")
	require.Contains(t, out, "RESIDUALS")
}

func TestViewerRender(t *testing.T) {
	viewer, _ := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))
	require.NoError(t, viewer.Toolbar().SetOption("lines", true))
	require.NoError(t, viewer.Toolbar().SetOption("legend", true))

	var buf bytes.Buffer
	require.NoError(t, viewer.Render(&buf, 16, 10, "svg"))
	require.Contains(t, buf.String(), "PS A1")
}

func TestViewerReload(t *testing.T) {
	viewer, _ := newTestViewer(t)
	require.NoError(t, viewer.AddFeature(1))
	require.NoError(t, viewer.AddFeature(2))

	layer, err := feed.FromRecords("ps", [][]string{
		{"id", "code", "D20200101", "D20200301", "D20201101"},
		{"2", "B2", "0", "1", "7"},
	})
	require.NoError(t, err)

	require.NoError(t, viewer.Reload(layer))
	require.Equal(t, []int64{2}, viewer.Selected())
	require.Equal(t, "PS B2", viewer.Graph().Series(0).Name)
	require.Len(t, viewer.Graph().Series(0).X, 3)
	require.Same(t, layer, viewer.Layer())
}
