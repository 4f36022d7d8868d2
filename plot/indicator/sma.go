package indicator

import (
	"fmt"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/plot"

	"github.com/markcheno/go-talib"
)

// SMA is the simple moving average of the last period values.
func SMA(period int, color string) plot.Indicator {
	return &sma{
		Period: period,
		Color:  color,
	}
}

type sma struct {
	Period int
	Color  string
	Values model.Series[float64]
	X      []float64
}

func (s sma) Warmup() int {
	return s.Period
}

func (s sma) Name() string {
	return fmt.Sprintf("SMA(%d)", s.Period)
}

func (s *sma) Load(x, y []float64) {
	s.Values, s.X = nil, nil
	if len(x) < s.Period {
		return
	}

	s.Values = talib.Sma(y, s.Period)[s.Period:]
	s.X = x[s.Period:]
}

func (s sma) Metrics() []plot.IndicatorMetric {
	return []plot.IndicatorMetric{
		{
			Name:   s.Name(),
			Style:  "-",
			Color:  s.Color,
			Values: s.Values,
			X:      s.X,
		},
	}
}
