package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set sets a pixel at (x, y) in sub-pixel coordinates. The canvas size in
// sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Bounds is a data-space rectangle mapped onto the whole canvas.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// BoundsOf returns the bounding box of the points, padded by pad of each
// span. Degenerate spans are widened to 1.
func BoundsOf(xs, ys []float64, pad float64) Bounds {
	b := Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	for _, x := range xs {
		b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
	}
	for _, y := range ys {
		b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
	}
	b.XMin, b.XMax = widen(b.XMin, b.XMax, pad)
	b.YMin, b.YMax = widen(b.YMin, b.YMax, pad)
	return b
}

func widen(lo, hi, pad float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return -1, 1
	}
	span := hi - lo
	if span == 0 {
		return lo - 0.5, hi + 0.5
	}
	return lo - pad*span, hi + pad*span
}

// toPixel maps a data point to sub-pixel coordinates with y pointing up.
func (c *Canvas) toPixel(b Bounds, x, y float64) (int, int) {
	pw, ph := c.Width*2-1, c.Height*4-1
	px := (x - b.XMin) / (b.XMax - b.XMin) * float64(pw)
	py := (b.YMax - y) / (b.YMax - b.YMin) * float64(ph)
	return int(math.Round(px)), int(math.Round(py))
}

// Polyline draws connected segments through the data points.
func (c *Canvas) Polyline(b Bounds, xs, ys []float64) {
	n := min(len(xs), len(ys))
	for i := 0; i < n; i++ {
		x, y := c.toPixel(b, xs[i], ys[i])
		if i == 0 {
			c.Set(x, y)
			continue
		}
		px, py := c.toPixel(b, xs[i-1], ys[i-1])
		c.DrawLine(px, py, x, y)
	}
}

// Scatter draws one dot per data point.
func (c *Canvas) Scatter(b Bounds, xs, ys []float64) {
	n := min(len(xs), len(ys))
	for i := 0; i < n; i++ {
		c.Set(c.toPixel(b, xs[i], ys[i]))
	}
}

// Axes draws the x = 0 and y = 0 lines when they fall inside the bounds.
func (c *Canvas) Axes(b Bounds) {
	if b.YMin <= 0 && b.YMax >= 0 {
		x0, y := c.toPixel(b, b.XMin, 0)
		x1, _ := c.toPixel(b, b.XMax, 0)
		for x := x0; x <= x1; x += 2 {
			c.Set(x, y)
		}
	}
	if b.XMin <= 0 && b.XMax >= 0 {
		x, y0 := c.toPixel(b, 0, b.YMax)
		_, y1 := c.toPixel(b, 0, b.YMin)
		for y := y0; y <= y1; y += 2 {
			c.Set(x, y)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
