package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rodrigo-brito/psviewer/model"
)

var records = [][]string{
	{"fid", "CODE", "height", "D20200301", "coherence", "D20200101", "d20200201", "first"},
	{"10", "A1", "12", "2.5", "0.91", "0", "1.5", "2019-12-01"},
	{"11", "A2", "13", "", "0.87", "-1", "x", "2019-12-03"},
}

func TestFromRecords(t *testing.T) {
	layer, err := FromRecords("ps", records)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11}, layer.IDs())

	info := layer.InfoFields()
	require.Len(t, info, 5)
	require.Equal(t, model.VariantInt, info[2].Type)
	require.Equal(t, model.VariantDouble, info[3].Type)
	require.Equal(t, model.VariantDate, info[4].Type)
	require.Equal(t, map[int]string{0: "fid", 1: "CODE", 2: "height", 4: "coherence", 7: "first"}, layer.FieldNames())

	measures := layer.MeasureFields()
	require.Len(t, measures, 3)
	require.Equal(t, "D20200101", measures[0].Name)
	require.Equal(t, "d20200201", measures[1].Name)
	require.Equal(t, "D20200301", measures[2].Name)

	_, ok := layer.Feature(12)
	require.False(t, ok)
	feature, ok := layer.Feature(11)
	require.True(t, ok)
	code, ok := layer.Code(feature)
	require.True(t, ok)
	require.Equal(t, "A2", code)
}

func TestTimeSeries(t *testing.T) {
	layer, err := FromRecords("ps", records)
	require.NoError(t, err)

	ts, err := layer.TimeSeries(10)
	require.NoError(t, err)
	require.Equal(t, "PS A1", ts.Name)
	require.Equal(t, []any{
		model.NewDate(2020, time.January, 1),
		model.NewDate(2020, time.February, 1),
		model.NewDate(2020, time.March, 1),
	}, ts.X)
	require.Equal(t, []float64{0, 1.5, 2.5}, []float64{
		model.Normalize(ts.Y[0]).Float,
		model.Normalize(ts.Y[1]).Float,
		model.Normalize(ts.Y[2]).Float,
	})
	require.Equal(t, []any{"D20200101", "d20200201", "D20200301"}, ts.Info)

	// empty and non numeric cells are skipped
	ts, err = layer.TimeSeries(11)
	require.NoError(t, err)
	require.Len(t, ts.X, 1)
	require.Equal(t, -1.0, model.Normalize(ts.Y[0]).Float)

	_, err = layer.TimeSeries(99)
	require.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestRowNumberIDs(t *testing.T) {
	layer, err := FromRecords("ps", [][]string{
		{"name", "D20210101"},
		{"a", "1"},
		{"b"},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1}, layer.IDs())

	ts, err := layer.TimeSeries(0)
	require.NoError(t, err)
	require.Equal(t, "PS 0", ts.Name)

	ts, err = layer.TimeSeries(1)
	require.NoError(t, err)
	require.Empty(t, ts.X)
}

func TestInvalidRecords(t *testing.T) {
	_, err := FromRecords("ps", nil)
	require.ErrorIs(t, err, ErrEmptyLayer)

	_, err = FromRecords("ps", [][]string{{"id"}, {"1"}, {"1"}})
	require.Error(t, err)

	_, err = FromRecords("ps", [][]string{{"id"}, {"one"}})
	require.Error(t, err)

	// a token that is not a calendar date is an attribute
	layer, err := FromRecords("ps", [][]string{{"D20201399"}, {"1"}})
	require.NoError(t, err)
	require.Empty(t, layer.MeasureFields())
}

func TestLimit(t *testing.T) {
	layer, err := FromRecords("ps", records)
	require.NoError(t, err)

	require.NoError(t, layer.Limit("35d"))
	measures := layer.MeasureFields()
	require.Len(t, measures, 2)
	require.Equal(t, "d20200201", measures[0].Name)
	require.Len(t, layer.InfoFields(), 5)

	require.Error(t, layer.Limit("soon"))
}

func TestFromCSV(t *testing.T) {
	file := filepath.Join(t.TempDir(), "layer.csv")
	content := "id,code,D20200101,D20200110\n1,P1,0.5,1\n2,P2,1,2\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	layer, err := Open(file, "")
	require.NoError(t, err)
	require.Equal(t, "layer", layer.Name)
	require.Equal(t, []int64{1, 2}, layer.IDs())

	ts, err := layer.TimeSeries(2)
	require.NoError(t, err)
	require.Equal(t, "PS P2", ts.Name)
	require.Len(t, ts.Y, 2)
}

func TestFromXLSX(t *testing.T) {
	file := filepath.Join(t.TempDir(), "layer.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"id", "code", "D20200101", "D20200201"},
		{7, "X7", 1.25, 2.5},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	require.NoError(t, f.SaveAs(file))
	require.NoError(t, f.Close())

	layer, err := Open(file, "")
	require.NoError(t, err)
	require.Equal(t, []int64{7}, layer.IDs())

	ts, err := layer.TimeSeries(7)
	require.NoError(t, err)
	require.Equal(t, "PS X7", ts.Name)
	require.Equal(t, 2.5, model.Normalize(ts.Y[1]).Float)

	_, err = FromXLSX(file, "Missing")
	require.Error(t, err)
}
