package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/san-kum/preisach/internal/metrics"
)

var ErrTooShort = errors.New("loop needs at least two samples")

type Characteristics struct {
	// CoerciveFields are the interpolated fields where m crosses zero.
	CoerciveFields []float64
	// Coercivity is NaN with fewer than two coercive fields.
	Coercivity float64
	// Remanence holds m at each crossing of h = 0.
	Remanence  []float64
	Saturation [2]float64
	Area       float64
}

// Characterize extracts the classic loop figures from a sampled (h, m)
// path. Samples are taken in path order.
func Characterize(h, m []float64) (Characteristics, error) {
	if len(h) != len(m) {
		return Characteristics{}, errors.New("h and m lengths differ")
	}
	if len(h) < 2 {
		return Characteristics{}, ErrTooShort
	}

	c := Characteristics{
		CoerciveFields: crossings(m, h),
		Remanence:      crossings(h, m),
		Saturation:     [2]float64{m[0], m[0]},
		Coercivity:     math.NaN(),
	}
	for _, v := range m {
		c.Saturation[0] = math.Min(c.Saturation[0], v)
		c.Saturation[1] = math.Max(c.Saturation[1], v)
	}
	if len(c.CoerciveFields) >= 2 {
		sorted := append([]float64(nil), c.CoerciveFields...)
		sort.Float64s(sorted)
		c.Coercivity = (sorted[len(sorted)-1] - sorted[0]) / 2
	}

	area := metrics.NewLoopArea()
	for i := range h {
		area.Observe(h[i], m[i], m[i])
	}
	c.Area = area.Value()
	return c, nil
}

// crossings returns other interpolated at each sign change of x. A sample
// exactly at zero counts once.
func crossings(x, other []float64) []float64 {
	var out []float64
	for i := 0; i < len(x); i++ {
		if x[i] == 0 {
			if i == 0 || x[i-1] != 0 {
				out = append(out, other[i])
			}
			continue
		}
		if i > 0 && x[i-1] != 0 && (x[i-1] < 0) != (x[i] < 0) {
			t := x[i-1] / (x[i-1] - x[i])
			out = append(out, other[i-1]+t*(other[i]-other[i-1]))
		}
	}
	return out
}
