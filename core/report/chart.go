package report

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/trezcool/matokeo/core/result"
)

const (
	chartHeight   = 400
	chartMinWidth = 800
	chartBarWidth = 40
	chartBarSpace = 16
	noDataText    = "No results yet"
)

var (
	chartBarColor  = drawing.ColorFromHex("2f6f9f")
	chartTextColor = drawing.ColorFromHex("444444")
)

// RenderChart writes a PNG bar chart of the score distribution, or a "no results" placeholder
// when every bucket is empty.
func RenderChart(w io.Writer, buckets []result.Bucket, title string) error {
	var total, highest int
	bars := make([]chart.Value, 0, len(buckets))
	for _, b := range buckets {
		total += b.Count
		if b.Count > highest {
			highest = b.Count
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%g-%g", b.From, b.To),
			Value: float64(b.Count),
			Style: chart.Style{FillColor: chartBarColor, StrokeColor: chartBarColor},
		})
	}
	if total == 0 {
		return renderNoData(w)
	}

	width := len(bars)*(chartBarWidth+chartBarSpace) + 120
	if width < chartMinWidth {
		width = chartMinWidth
	}
	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: chartTextColor},
		Width:      width,
		Height:     chartHeight,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpace,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.Style{FontColor: chartTextColor},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: chartTextColor},
			Range:          &chart.ContinuousRange{Min: 0, Max: float64(highest)},
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
		},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
	return errors.Wrap(graph.Render(chart.PNG, w), "rendering chart")
}

func renderNoData(w io.Writer) error {
	r, err := chart.PNG(chartMinWidth, chartHeight)
	if err != nil {
		return errors.Wrap(err, "creating renderer")
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return errors.Wrap(err, "loading font")
	}

	r.SetFillColor(drawing.ColorWhite)
	r.MoveTo(0, 0)
	r.LineTo(chartMinWidth, 0)
	r.LineTo(chartMinWidth, chartHeight)
	r.LineTo(0, chartHeight)
	r.Close()
	r.Fill()

	r.SetFont(font)
	r.SetFontColor(chartTextColor)
	r.SetFontSize(18)
	tb := r.MeasureText(noDataText)
	r.Text(noDataText, (chartMinWidth-tb.Width())/2, (chartHeight+tb.Height())/2)
	return errors.Wrap(r.Save(w), "saving placeholder")
}
