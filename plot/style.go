package plot

import (
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rodrigo-brito/psviewer/model"
)

// Style properties use the short keys of the stored settings bundles:
// "c" color, "marker" glyph, "ms" marker size, "lw" line width,
// "ls" line dash and "fontsize" text size.

var colors = map[string]color.Color{
	"k":       color.Black,
	"black":   color.Black,
	"w":       color.White,
	"white":   color.White,
	"r":       color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	"red":     color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	"g":       color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	"green":   color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	"b":       color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	"blue":    color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	"c":       color.RGBA{G: 0xbf, B: 0xbf, A: 0xff},
	"cyan":    color.RGBA{G: 0xbf, B: 0xbf, A: 0xff},
	"m":       color.RGBA{R: 0xbf, B: 0xbf, A: 0xff},
	"magenta": color.RGBA{R: 0xbf, B: 0xbf, A: 0xff},
	"y":       color.RGBA{R: 0xbf, G: 0xbf, A: 0xff},
	"yellow":  color.RGBA{R: 0xbf, G: 0xbf, A: 0xff},
	"orange":  color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	"gray":    color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	"grey":    color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

// parseColor understands single letter codes, a few names and #rrggbb.
// Unknown values fall back to black.
func parseColor(value string) color.Color {
	value = strings.ToLower(strings.TrimSpace(value))
	if c, ok := colors[value]; ok {
		return c
	}
	if strings.HasPrefix(value, "#") && len(value) == 7 {
		rgb, err := strconv.ParseUint(value[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}
		}
	}
	return color.Black
}

func parseGlyph(marker string) draw.GlyphDrawer {
	switch marker {
	case "s":
		return draw.BoxGlyph{}
	case "o", ".":
		return draw.CircleGlyph{}
	case "^", "v":
		return draw.TriangleGlyph{}
	case "D", "d":
		return draw.PyramidGlyph{}
	case "+":
		return draw.PlusGlyph{}
	case "x":
		return draw.CrossGlyph{}
	default:
		return draw.RingGlyph{}
	}
}

func parseLength(value string, def vg.Length) vg.Length {
	if value == "" {
		return def
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v < 0 {
		return def
	}
	return vg.Length(v)
}

func glyphStyle(props model.Props) draw.GlyphStyle {
	style := plotter.DefaultGlyphStyle
	style.Color = parseColor(props.Get("c", "k"))
	style.Shape = parseGlyph(props.Get("marker", "o"))
	radius := vg.Points(2.5)
	if props.Get("marker", "") == "." {
		radius = vg.Points(1)
	}
	style.Radius = parseLength(props.Get("ms", ""), radius)
	return style
}

func lineStyle(props model.Props) draw.LineStyle {
	style := plotter.DefaultLineStyle
	style.Color = parseColor(props.Get("c", "k"))
	style.Width = parseLength(props.Get("lw", ""), vg.Points(1))
	switch props.Get("ls", "-") {
	case "--":
		style.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	case ":":
		style.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}
	case "-.":
		style.Dashes = []vg.Length{vg.Points(5), vg.Points(2), vg.Points(1), vg.Points(2)}
	}
	return style
}

var fontScale = map[string]float64{
	"xx-small": 0.579,
	"x-small":  0.694,
	"small":    0.833,
	"medium":   1.0,
	"large":    1.2,
	"x-large":  1.44,
	"xx-large": 1.728,
}

// fontSize resolves a named or numeric size relative to base.
func fontSize(props model.Props, base font.Length) font.Length {
	value := props.Get("fontsize", "medium")
	if scale, ok := fontScale[value]; ok {
		return font.Length(scale) * base
	}
	return parseLength(value, base)
}
