// Package feed loads layers of permanent scatterers from attribute tables.
// Every row is a feature; columns whose name holds a DYYYYMMDD token are
// the displacement measured at that date, the others are attributes.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
	"github.com/xuri/excelize/v2"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

var (
	ErrFeatureNotFound = errors.New("feature not found")
	ErrEmptyLayer      = errors.New("layer has no header")
)

var measurePattern = regexp.MustCompile(`(?i)D(\d{8})`)

// Field describes a column of the layer.
type Field struct {
	Index int
	Name  string
	Type  model.VariantType
	// Date is set on measurement fields only.
	Date time.Time
}

// IsMeasure reports whether the field holds a dated displacement.
func (f Field) IsMeasure() bool {
	return !f.Date.IsZero()
}

// Feature is a row of the layer. Attributes are model.Variant values
// indexed like the fields.
type Feature struct {
	ID         int64
	Attributes []any
}

// Layer is an attribute table of permanent scatterers.
type Layer struct {
	Name     string
	Fields   []Field
	Features []Feature
	byID     map[int64]int
}

// FromCSV reads a layer from a comma separated file with a header row.
func FromCSV(file string) (*Layer, error) {
	csvFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	reader := csv.NewReader(csvFile)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return FromRecords(layerName(file), records)
}

// FromXLSX reads a layer from a sheet of a workbook, the first sheet when
// sheet is empty.
func FromXLSX(file, sheet string) (*Layer, error) {
	f, err := excelize.OpenFile(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyLayer
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return FromRecords(layerName(file), rows)
}

// Open reads a layer choosing the reader by file extension.
func Open(file, sheet string) (*Layer, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx", ".xlsm":
		return FromXLSX(file, sheet)
	default:
		return FromCSV(file)
	}
}

func layerName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}

// FromRecords builds a layer from a header row followed by one row per
// feature. An "id" or "fid" column provides the feature ids, row numbers
// starting at zero are used otherwise.
func FromRecords(name string, records [][]string) (*Layer, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyLayer
	}

	headers := records[0]
	rows := records[1:]
	for i, row := range rows {
		if len(row) < len(headers) {
			rows[i] = append(row, make([]string, len(headers)-len(row))...)
		}
	}

	layer := &Layer{
		Name: name,
		byID: make(map[int64]int, len(rows)),
	}

	idColumn := -1
	for index, header := range headers {
		header = strings.TrimSpace(header)
		field := Field{Index: index, Name: header}
		if match := measurePattern.FindStringSubmatch(header); match != nil {
			if date, err := time.Parse("20060102", match[1]); err == nil {
				field.Date = date
				field.Type = model.VariantDouble
			}
		}
		if !field.IsMeasure() {
			field.Type = columnType(rows, index)
		}
		if idColumn < 0 && (strings.EqualFold(header, "id") || strings.EqualFold(header, "fid")) {
			idColumn = index
		}
		layer.Fields = append(layer.Fields, field)
	}

	for row, values := range rows {
		id := int64(row)
		if idColumn >= 0 {
			var err error
			id, err = strconv.ParseInt(strings.TrimSpace(values[idColumn]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid feature id %q", row+1, values[idColumn])
			}
		}
		if _, ok := layer.byID[id]; ok {
			return nil, fmt.Errorf("row %d: duplicated feature id %d", row+1, id)
		}

		attributes := make([]any, len(headers))
		for _, field := range layer.Fields {
			attributes[field.Index] = model.Variant{Type: field.Type, Raw: strings.TrimSpace(values[field.Index])}
		}
		layer.byID[id] = len(layer.Features)
		layer.Features = append(layer.Features, Feature{ID: id, Attributes: attributes})
	}

	sort.SliceStable(layer.Fields, func(i, j int) bool {
		a, b := layer.Fields[i], layer.Fields[j]
		if a.IsMeasure() && b.IsMeasure() {
			return a.Date.Before(b.Date)
		}
		return !a.IsMeasure() && b.IsMeasure()
	})
	return layer, nil
}

// columnType is the narrowest type every non empty cell of the column fits.
func columnType(rows [][]string, index int) model.VariantType {
	isInt, isDouble, isDate := true, true, true
	seen := false
	for _, row := range rows {
		cell := strings.TrimSpace(row[index])
		if cell == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isDouble = false
		}
		if _, err := time.Parse(model.DateLayout, cell); err != nil {
			isDate = false
		}
	}

	switch {
	case !seen:
		return model.VariantString
	case isInt:
		return model.VariantInt
	case isDouble:
		return model.VariantDouble
	case isDate:
		return model.VariantDate
	default:
		return model.VariantString
	}
}

// IDs lists the feature ids in row order.
func (l *Layer) IDs() []int64 {
	return lo.Map(l.Features, func(f Feature, _ int) int64 { return f.ID })
}

// Feature returns the feature with the given id.
func (l *Layer) Feature(id int64) (Feature, bool) {
	index, ok := l.byID[id]
	if !ok {
		return Feature{}, false
	}
	return l.Features[index], true
}

// InfoFields lists the attribute fields.
func (l *Layer) InfoFields() []Field {
	return lo.Filter(l.Fields, func(f Field, _ int) bool { return !f.IsMeasure() })
}

// MeasureFields lists the measurement fields by date.
func (l *Layer) MeasureFields() []Field {
	return lo.Filter(l.Fields, func(f Field, _ int) bool { return f.IsMeasure() })
}

// FieldNames maps the attribute index of every info field to its name.
func (l *Layer) FieldNames() map[int]string {
	names := make(map[int]string)
	for _, field := range l.InfoFields() {
		names[field.Index] = field.Name
	}
	return names
}

// Code returns the value of the first field whose name starts with "code".
func (l *Layer) Code(feature Feature) (string, bool) {
	for _, field := range l.InfoFields() {
		if strings.HasPrefix(strings.ToLower(field.Name), "code") {
			return model.Normalize(feature.Attributes[field.Index]).String(), true
		}
	}
	return "", false
}

// TimeSeries returns the measurements of a feature: dates on x, the
// displacement variants on y and the name of the source field as info.
// Empty or non numeric cells are skipped.
func (l *Layer) TimeSeries(id int64) (model.TimeSeries, error) {
	feature, ok := l.Feature(id)
	if !ok {
		return model.TimeSeries{}, fmt.Errorf("%w: %d", ErrFeatureNotFound, id)
	}

	name := fmt.Sprintf("PS %d", id)
	if code, ok := l.Code(feature); ok && code != "" {
		name = "PS " + code
	}

	ts := model.TimeSeries{Name: name, X: []any{}, Y: []any{}, Info: []any{}}
	for _, field := range l.MeasureFields() {
		value := model.Normalize(feature.Attributes[field.Index])
		if value.Kind != model.KindFloat {
			log.WithFields(log.Fields{"feature": id, "field": field.Name}).Debug("measurement skipped")
			continue
		}
		ts.X = append(ts.X, model.NewDate(field.Date.Year(), field.Date.Month(), field.Date.Day()))
		ts.Y = append(ts.Y, feature.Attributes[field.Index])
		ts.Info = append(ts.Info, field.Name)
	}
	return ts, nil
}

// Limit keeps only the measurements dated within window (e.g. "2y",
// "180d") of the latest one.
func (l *Layer) Limit(window string) error {
	duration, err := str2duration.ParseDuration(window)
	if err != nil {
		return err
	}

	measures := l.MeasureFields()
	if len(measures) == 0 {
		return nil
	}
	from := measures[len(measures)-1].Date.Add(-duration)
	l.Fields = lo.Filter(l.Fields, func(f Field, _ int) bool {
		return !f.IsMeasure() || !f.Date.Before(from)
	})
	return nil
}
