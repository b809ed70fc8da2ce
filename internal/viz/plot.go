package viz

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// LoopPlot draws m against h on a Braille canvas of width x height
// characters. Measured points are dotted and the prediction is a line.
// Either series may be nil.
func LoopPlot(h, measured, predicted []float64, width, height int) string {
	c := NewCanvas(width, height)
	ys := append(append([]float64(nil), measured...), predicted...)
	b := BoundsOf(h, ys, 0.05)

	c.Axes(b)
	if measured != nil {
		c.Scatter(b, h, measured)
	}
	if predicted != nil {
		c.Polyline(b, h, predicted)
	}

	axis := Subtle.Render(fmt.Sprintf("h [%.3g, %.3g]  m [%.3g, %.3g]", b.XMin, b.XMax, b.YMin, b.YMax))
	return lipgloss.NewStyle().Foreground(CurrentTheme.Predicted).Render(c.String()) + axis
}

// SeriesChart plots measured and predicted magnetization against the step
// index. A nil measured series plots the prediction alone.
func SeriesChart(measured, predicted []float64, width, height int) string {
	if len(predicted) == 0 {
		return ""
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
	}
	if measured == nil {
		opts = append(opts, asciigraph.Caption("predicted m"))
		return asciigraph.Plot(predicted, opts...)
	}
	opts = append(opts,
		asciigraph.Caption("measured (cyan) / predicted (magenta)"),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
	)
	return asciigraph.PlotMany([][]float64{measured, predicted}, opts...)
}

// ResidualLine summarizes how far predictions sit from measurements as a
// sparkline of absolute residuals.
func ResidualLine(measured, predicted []float64, width int) string {
	n := min(len(measured), len(predicted))
	if n == 0 {
		return ""
	}
	res := make([]float64, n)
	for i := range res {
		d := measured[i] - predicted[i]
		if d < 0 {
			d = -d
		}
		res[i] = d
	}
	return Subtle.Render("|residual| ") + SparklineChart(res, width)
}
