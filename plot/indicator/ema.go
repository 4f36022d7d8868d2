package indicator

import (
	"fmt"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"

	"github.com/markcheno/go-talib"
)

// EMA is the exponential moving average over period values.
func EMA(period int, color string) plot.Indicator {
	return &ema{
		Period: period,
		Color:  color,
	}
}

type ema struct {
	Period int
	Color  string
	Values model.Series[float64]
	X      []float64
}

func (e ema) Warmup() int {
	return e.Period
}

func (e ema) Name() string {
	return fmt.Sprintf("EMA(%d)", e.Period)
}

func (e *ema) Load(x, y []float64) {
	e.Values, e.X = nil, nil
	if len(x) < e.Period {
		return
	}

	e.Values = talib.Ema(y, e.Period)[e.Period:]
	e.X = x[e.Period:]
}

func (e ema) Metrics() []plot.IndicatorMetric {
	return []plot.IndicatorMetric{
		{
			Name:   e.Name(),
			Style:  "-",
			Color:  e.Color,
			Values: e.Values,
			X:      e.X,
		},
	}
}
