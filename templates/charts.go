package templates

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 560
	chartHeight = 320
)

func values(c ChartData) []chart.Value {
	out := make([]chart.Value, 0, len(c.Bars))
	for _, b := range c.Bars {
		if b.Count <= 0 {
			continue
		}
		out = append(out, chart.Value{Label: b.Label, Value: float64(b.Count)})
	}
	return out
}

// BarSVG renders c as a bar chart. The y axis always starts at zero so a
// single bar or equal bars still get a valid range.
func BarSVG(c ChartData) ([]byte, error) {
	vals := values(c)
	if len(vals) == 0 {
		return nil, fmt.Errorf("chart %q has no data", c.Title)
	}
	top := 0.0
	for _, v := range vals {
		if v.Value > top {
			top = v.Value
		}
	}
	bc := chart.BarChart{
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(vals)),
		BarSpacing: barWidth(len(vals)),
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 12, Right: 12, Bottom: 12},
		},
		YAxis: chart.YAxis{
			Name:           c.YLabel,
			Range:          &chart.ContinuousRange{Min: 0, Max: top + 1},
			ValueFormatter: intFormatter,
		},
		Bars: vals,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("rendering %q: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

// PieSVG renders c as a pie chart.
func PieSVG(c ChartData) ([]byte, error) {
	vals := values(c)
	if len(vals) == 0 {
		return nil, fmt.Errorf("chart %q has no data", c.Title)
	}
	pc := chart.PieChart{
		Width:  chartHeight,
		Height: chartHeight,
		Values: vals,
	}
	var buf bytes.Buffer
	if err := pc.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("rendering %q: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

func barWidth(n int) int {
	w := (chartWidth - 80) / (n * 2)
	switch {
	case w > 60:
		return 60
	case w < 8:
		return 8
	}
	return w
}

func intFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

// chartSVG writes the SVG produced by render. A render failure is returned
// from Render so the page fails instead of looking empty.
func chartSVG(c ChartData, render func(ChartData) ([]byte, error)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		svg, err := render(c)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	})
}
