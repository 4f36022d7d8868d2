package indicator

import (
	"fmt"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"

	"github.com/markcheno/go-talib"
)

// BollingerBands draws a moving average with bands stdDeviation standard
// deviations above and below it. Displacements leaving the bands are the
// candidates for anomalous movements.
func BollingerBands(period int, stdDeviation float64, upDnBandColor, midBandColor string) plot.Indicator {
	return &bollingerBands{
		Period:        period,
		StdDeviation:  stdDeviation,
		UpDnBandColor: upDnBandColor,
		MidBandColor:  midBandColor,
	}
}

type bollingerBands struct {
	Period        int
	StdDeviation  float64
	UpDnBandColor string
	MidBandColor  string
	UpperBand     model.Series[float64]
	MiddleBand    model.Series[float64]
	LowerBand     model.Series[float64]
	X             []float64
}

func (bb bollingerBands) Warmup() int {
	return bb.Period
}

func (bb bollingerBands) Name() string {
	return fmt.Sprintf("BB(%d, %.2f)", bb.Period, bb.StdDeviation)
}

func (bb *bollingerBands) Load(x, y []float64) {
	bb.UpperBand, bb.MiddleBand, bb.LowerBand, bb.X = nil, nil, nil, nil
	if len(x) < bb.Period {
		return
	}

	upper, mid, lower := talib.BBands(y, bb.Period, bb.StdDeviation, bb.StdDeviation, talib.EMA)
	bb.UpperBand, bb.MiddleBand, bb.LowerBand = upper[bb.Period:], mid[bb.Period:], lower[bb.Period:]
	bb.X = x[bb.Period:]
}

func (bb bollingerBands) Metrics() []plot.IndicatorMetric {
	return []plot.IndicatorMetric{
		{
			Name:   "upper",
			Style:  "--",
			Color:  bb.UpDnBandColor,
			Values: bb.UpperBand,
			X:      bb.X,
		},
		{
			Name:   "middle",
			Style:  "-",
			Color:  bb.MidBandColor,
			Values: bb.MiddleBand,
			X:      bb.X,
		},
		{
			Name:   "lower",
			Style:  "--",
			Color:  bb.UpDnBandColor,
			Values: bb.LowerBand,
			X:      bb.X,
		},
	}
}
