package chart

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNotEnoughData = errors.New("at least two price points are needed to draw a chart")

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type palette struct {
	background drawing.Color
	text       drawing.Color
	grid       drawing.Color
	series     drawing.Color
}

var palettes = map[Theme]palette{
	ThemeDark: {
		background: drawing.Color{R: 55, G: 55, B: 55, A: 255},
		text:       drawing.Color{R: 200, G: 200, B: 200, A: 255},
		grid:       drawing.Color{R: 100, G: 100, B: 100, A: 128},
		series:     drawing.Color{R: 0, G: 122, B: 255, A: 255},
	},
	ThemeLight: {
		background: drawing.ColorWhite,
		text:       drawing.Color{R: 40, G: 40, B: 40, A: 255},
		grid:       drawing.Color{R: 210, G: 210, B: 210, A: 255},
		series:     drawing.Color{R: 0, G: 122, B: 255, A: 255},
	},
}

var monthNames = map[string][12]string{
	"en": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	"es": {"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"},
}

// Options of a rendered chart
type Options struct {
	Theme  Theme
	Locale string
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if _, ok := palettes[o.Theme]; !ok {
		o.Theme = ThemeDark
	}
	if _, ok := monthNames[strings.ToLower(o.Locale)]; !ok {
		o.Locale = "en"
	}
	o.Locale = strings.ToLower(o.Locale)
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	return o
}

// DayLabel formats t as day and abbreviated month in locale
func DayLabel(t time.Time, locale string) string {
	months, ok := monthNames[strings.ToLower(locale)]
	if !ok {
		months = monthNames["en"]
	}
	return fmt.Sprintf("%02d-%s", t.Day(), months[t.Month()-1])
}

// Render draws the price history of asset as a PNG
func Render(asset types.Asset, opts Options) ([]byte, error) {
	if len(asset.PriceHistory) < 2 {
		return nil, ErrNotEnoughData
	}
	opts = opts.withDefaults()
	colors := palettes[opts.Theme]

	xValues := make([]time.Time, 0, len(asset.PriceHistory))
	yValues := make([]float64, 0, len(asset.PriceHistory))
	minPrice, maxPrice := asset.PriceHistory[0].Price, asset.PriceHistory[0].Price
	for _, p := range asset.PriceHistory {
		xValues = append(xValues, time.Unix(p.Timestamp, 0).UTC())
		yValues = append(yValues, p.Price)
		if p.Price < minPrice {
			minPrice = p.Price
		}
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}

	padding := (maxPrice - minPrice) * 0.1
	if padding == 0 {
		padding = maxPrice * 0.01
	}

	axisStyle := chart.Style{
		FontColor:   colors.text,
		FontSize:    12,
		StrokeColor: colors.text,
	}
	gridStyle := chart.Style{
		StrokeColor: colors.grid,
		StrokeWidth: 1,
	}

	graph := chart.Chart{
		Title:      fmt.Sprintf("%s (%s) 30 days price chart", asset.Name, asset.ChartSymbol),
		TitleStyle: chart.Style{FontColor: colors.text, FontSize: 14},
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{
			FillColor: colors.background,
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: colors.background},
		XAxis: chart.XAxis{
			Style: axisStyle,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return DayLabel(chart.TimeFromFloat64(f), opts.Locale)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Style:          axisStyle,
			GridMajorStyle: gridStyle,
			GridMinorStyle: gridStyle,
			Range: &chart.ContinuousRange{
				Min: minPrice - padding,
				Max: maxPrice + padding,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatPriceUS(f, asset.Symbol, false)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    asset.Symbol,
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: colors.series,
					StrokeWidth: 2,
					FillColor:   colors.series.WithAlpha(35),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrapf(err, "rendering chart for %s", asset.ID)
	}
	return buf.Bytes(), nil
}
