package plot

import "github.com/rodrigo-brito/psviewer/model"

// Indicator computes derived curves of a series, such as moving averages.
type Indicator interface {
	Name() string
	// Warmup is the number of points needed before the first value.
	Warmup() int
	// Load computes the metrics of the series with abscissas x, in Unix
	// seconds for dates, and ordinates y.
	Load(x, y []float64)
	Metrics() []IndicatorMetric
}

// IndicatorMetric is one curve of an indicator.
type IndicatorMetric struct {
	Name   string
	Color  string
	Style  string
	X      []float64
	Values model.Series[float64]
}
