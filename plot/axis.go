package plot

import (
	"fmt"
	"time"

	"github.com/rodrigo-brito/psviewer/model"
)

const day = 24 * time.Hour

// Tick label layouts chosen by the time span of the plotted data.
const (
	YearFormat  = "2006"
	MonthFormat = "2006-01"
	DayFormat   = "2006-01-02"
)

// DateFormat picks the tick label layout for dates spanning the given
// values: years above five years, months above five months, days otherwise.
func DateFormat(values []time.Time) string {
	if len(values) == 0 {
		return DayFormat
	}
	first, last := values[0], values[0]
	for _, v := range values[1:] {
		if v.Before(first) {
			first = v
		}
		if v.After(last) {
			last = v
		}
	}

	days := int(last.Sub(first) / day)
	switch {
	case days > 365*5:
		return YearFormat
	case days > 30*5:
		return MonthFormat
	default:
		return DayFormat
	}
}

// AxisLimits is the visible range of one axis. Bounds of a date axis are
// date-time values.
type AxisLimits struct {
	Min model.Value
	Max model.Value
}

// NumericLimits builds limits of a numeric axis.
func NumericLimits(min, max float64) AxisLimits {
	return AxisLimits{Min: model.FloatValue(min), Max: model.FloatValue(max)}
}

// DateLimits builds limits of a date axis.
func DateLimits(min, max time.Time) AxisLimits {
	return AxisLimits{Min: model.DateTimeValue(min), Max: model.DateTimeValue(max)}
}

func (l AxisLimits) encode() (min, max float64, err error) {
	var ok bool
	if min, ok = l.Min.Num(); !ok {
		return 0, 0, fmt.Errorf("%w: axis bound %q", ErrUnplottable, l.Min.String())
	}
	if max, ok = l.Max.Num(); !ok {
		return 0, 0, fmt.Errorf("%w: axis bound %q", ErrUnplottable, l.Max.String())
	}
	return min, max, nil
}

func (l AxisLimits) String() string {
	return fmt.Sprintf("[%s, %s]", l.Min, l.Max)
}

// axis holds the display state of one chart axis. Its date flag is reset on
// every plot pass and set again by the first element of plotted data.
type axis struct {
	date     bool
	format   string
	auto     bool
	min, max float64
	limited  bool
}

func newAxis() axis {
	return axis{auto: true, min: 0, max: 1}
}

func (a *axis) reset() {
	a.date = false
	a.format = ""
}

func (a *axis) useDates(values []model.Value) {
	times := make([]time.Time, 0, len(values))
	for _, v := range values {
		if v.IsTime() {
			times = append(times, v.Time)
		}
	}
	a.date = true
	a.format = DateFormat(times)
}

func (a *axis) set(min, max float64) {
	a.min, a.max = min, max
	a.limited = true
}

func (a axis) limits() AxisLimits {
	if a.date {
		return DateLimits(model.NumToTime(a.min), model.NumToTime(a.max))
	}
	return NumericLimits(a.min, a.max)
}
