package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

// ReversalCurve is the ascending branch traced after saturating upwards and
// reversing at Reversal. H starts at Reversal.
type ReversalCurve struct {
	Reversal float64
	H, M     []float64
}

// FORC holds reversal curves on a shared grid of n fields spanning the
// model's valid domain. Curve i reverses at Grid[i] and covers Grid[i:].
type FORC struct {
	Grid   []float64
	Curves []ReversalCurve
}

// FirstOrderReversalCurves traces n reversal curves on clones of md; md is
// not modified.
func FirstOrderReversalCurves(md *model.Model, n int) (*FORC, error) {
	if n < 3 {
		return nil, fmt.Errorf("%w: need at least 3 grid points, got %d", preisach.ErrConfiguration, n)
	}
	domain := md.ValidDomain()
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = domain[0] + (domain[1]-domain[0])*float64(i)/float64(n-1)
	}

	forc := &FORC{Grid: grid, Curves: make([]ReversalCurve, 0, n)}
	for i, hr := range grid {
		c := md.Clone()
		c.ResetHistory()
		if err := c.ApplyField(domain[1], hr); err != nil {
			return nil, err
		}
		ascent := grid[i:]
		m, err := c.Evaluate(model.Future, ascent, true)
		if err != nil {
			return nil, err
		}
		forc.Curves = append(forc.Curves, ReversalCurve{
			Reversal: hr,
			H:        append([]float64(nil), ascent...),
			M:        m,
		})
	}
	return forc, nil
}

// Distribution returns rho[i][j] = -1/2 d2m / (dhr dh) at reversal Grid[i]
// and field Grid[j], by mixed finite differences. Entries outside
// hr < h are NaN. The result is (n-1) x (n-1).
func (f *FORC) Distribution() [][]float64 {
	n := len(f.Grid)
	rho := make([][]float64, n-1)
	// m(i, j) is curve i at Grid[j], defined for j >= i
	at := func(i, j int) float64 { return f.Curves[i].M[j-i] }
	for i := 0; i < n-1; i++ {
		rho[i] = make([]float64, n-1)
		dhr := f.Grid[i+1] - f.Grid[i]
		for j := 0; j < n-1; j++ {
			if j < i+1 {
				rho[i][j] = math.NaN()
				continue
			}
			dh := f.Grid[j+1] - f.Grid[j]
			mixed := (at(i+1, j+1) - at(i+1, j)) - (at(i, j+1) - at(i, j))
			rho[i][j] = -0.5 * mixed / (dhr * dh)
		}
	}
	return rho
}
