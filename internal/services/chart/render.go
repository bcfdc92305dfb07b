// Package chart renders analytics chart data as PNG images.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	defaultWidth  = 900
	defaultHeight = 400
)

var palette = []string{"2563eb", "16a34a", "dc2626", "d97706", "7c3aed", "0891b2", "db2777", "4b5563"}

func color(i int) drawing.Color {
	return drawing.ColorFromHex(palette[i%len(palette)])
}

// Renderer implements interfaces.ChartRenderer with go-chart.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer producing width x height images.
// Non-positive sizes fall back to 900x400.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{width: width, height: height}
}

// Render returns a base64-encoded PNG. Table and none charts are not drawable.
func (r *Renderer) Render(data *models.ChartData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("no chart data")
	}

	var buf bytes.Buffer
	var err error
	switch data.Type {
	case models.ChartLine:
		err = r.renderLine(data, &buf)
	case models.ChartBar:
		err = r.renderBar(data, &buf)
	case models.ChartPie:
		err = r.renderPie(data, &buf)
	default:
		return "", fmt.Errorf("chart type %q cannot be rendered", data.Type)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (r *Renderer) renderLine(data *models.ChartData, buf *bytes.Buffer) error {
	var series []chart.Series
	for i, s := range data.Series {
		xs := make([]time.Time, 0, len(s.Data))
		ys := make([]float64, 0, len(s.Data))
		for _, p := range s.Data {
			d, err := time.Parse("2006-01-02", p.X)
			if err != nil {
				continue
			}
			xs = append(xs, d)
			ys = append(ys, p.Y)
		}
		if len(xs) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name: s.Name,
			Style: chart.Style{
				StrokeColor: color(i),
				StrokeWidth: 2,
			},
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("need at least one series with 2 data points")
	}

	graph := chart.Chart{
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	if err := graph.Render(chart.PNG, buf); err != nil {
		return fmt.Errorf("line chart render failed: %w", err)
	}
	return nil
}

func values(data *models.ChartData) []chart.Value {
	out := make([]chart.Value, 0, len(data.Values))
	for i, v := range data.Values {
		label := ""
		if i < len(data.Labels) {
			label = data.Labels[i]
		}
		out = append(out, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: color(i), StrokeColor: color(i)},
		})
	}
	return out
}

func (r *Renderer) renderBar(data *models.ChartData, buf *bytes.Buffer) error {
	bars := values(data)
	if len(bars) == 0 {
		return fmt.Errorf("bar chart has no values")
	}

	graph := chart.BarChart{
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return fmt.Errorf("bar chart render failed: %w", err)
	}
	return nil
}

func (r *Renderer) renderPie(data *models.ChartData, buf *bytes.Buffer) error {
	slices := values(data)
	total := 0.0
	for _, s := range slices {
		if s.Value < 0 {
			return fmt.Errorf("pie chart value for %s is negative", s.Label)
		}
		total += s.Value
	}
	if total == 0 {
		return fmt.Errorf("pie chart has no values")
	}

	// square canvas
	graph := chart.PieChart{
		Width:  r.height,
		Height: r.height,
		Values: slices,
	}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return fmt.Errorf("pie chart render failed: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.ChartRenderer = (*Renderer)(nil)
