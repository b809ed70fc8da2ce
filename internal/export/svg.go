// Package export writes hysteresis loops as standalone SVG documents.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/preisach/internal/viz"
)

// Series is one curve of a loop plot. Dotted series are drawn as markers,
// the rest as a path.
type Series struct {
	Label  string
	X, Y   []float64
	Color  string
	Dotted bool
}

// LoopSVG renders the series on shared axes. Series with fewer than two
// points are skipped; the result is empty when nothing is drawable.
func LoopSVG(series []Series, width, height int) string {
	var xs, ys []float64
	drawable := 0
	for _, s := range series {
		n := min(len(s.X), len(s.Y))
		if n < 2 {
			continue
		}
		drawable++
		xs = append(xs, s.X[:n]...)
		ys = append(ys, s.Y[:n]...)
	}
	if drawable == 0 {
		return ""
	}
	b := viz.BoundsOf(xs, ys, 0.1)
	px := func(x float64) float64 { return (x - b.XMin) / (b.XMax - b.XMin) * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-b.YMin)/(b.YMax-b.YMin)*float64(height) }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if b.YMin <= 0 && b.YMax >= 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466"/>
`, py(0), width, py(0)))
	}
	if b.XMin <= 0 && b.XMax >= 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#444466"/>
`, px(0), px(0), height))
	}

	legendY := 16
	for _, s := range series {
		n := min(len(s.X), len(s.Y))
		if n < 2 {
			continue
		}
		if s.Dotted {
			sb.WriteString(fmt.Sprintf(`<g fill="%s">
`, s.Color))
			for i := 0; i < n; i++ {
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="1.5"/>
`, px(s.X[i]), py(s.Y[i])))
			}
			sb.WriteString("</g>\n")
		} else {
			sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color))
			for i := 0; i < n; i++ {
				if i == 0 {
					sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(s.X[i]), py(s.Y[i])))
				} else {
					sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(s.X[i]), py(s.Y[i])))
				}
			}
			sb.WriteString(`"/>
`)
		}
		if s.Label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, legendY, s.Color, escape(s.Label)))
			legendY += 16
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// CanvasToSVG converts a Braille canvas to SVG, one circle per set dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
