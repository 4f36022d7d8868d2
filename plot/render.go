package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	titleFontSize = vg.Length(12)
	labelFontSize = vg.Length(10)
)

func centimeters(v float64) vg.Length {
	return vg.Length(v) * vg.Centimeter
}

// Figure builds the gonum plot of the current layers, limits and texts.
func (c *Chart) Figure() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.title
	p.Title.TextStyle.Font.Size = fontSize(c.titleProps, titleFontSize)
	p.X.Label.Text = c.xLabel
	p.Y.Label.Text = c.yLabel
	p.X.Label.TextStyle.Font.Size = fontSize(c.labelProps, labelFontSize)
	p.Y.Label.TextStyle.Font.Size = fontSize(c.labelProps, labelFontSize)

	if c.hgrid || c.vgrid {
		grid := plotter.NewGrid()
		if !c.vgrid {
			grid.Vertical.Color = nil
		}
		if !c.hgrid {
			grid.Horizontal.Color = nil
		}
		p.Add(grid)
	}

	for idx, s := range c.series {
		for _, layer := range s.Layers {
			element, err := layer.plotter()
			if err != nil {
				return nil, fmt.Errorf("series %d: %w", idx, err)
			}
			if element == nil {
				continue
			}
			p.Add(element)

			if c.legend && layer == s.primary() {
				if thumb, ok := element.(plot.Thumbnailer); ok {
					p.Legend.Add(s.label(idx), thumb)
				}
			}
		}
	}

	if c.x.limited {
		p.X.Min, p.X.Max = c.x.min, c.x.max
	}
	if c.y.limited {
		p.Y.Min, p.Y.Max = c.y.min, c.y.max
	}
	if c.x.date {
		p.X.Tick.Marker = plot.TimeTicks{Format: c.x.format, Time: plot.UTCUnixTime}
	}
	if c.y.date {
		p.Y.Tick.Marker = plot.TimeTicks{Format: c.y.format, Time: plot.UTCUnixTime}
	}
	if c.logY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return p, nil
}

// primary is the first layer drawn for the series.
func (s *Series) primary() *Layer {
	if len(s.Layers) == 0 {
		return nil
	}
	return s.Layers[0]
}

func (s *Series) label(idx int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("series %d", idx)
}
