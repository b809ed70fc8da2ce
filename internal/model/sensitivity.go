package model

import (
	"fmt"

	"github.com/san-kum/preisach/internal/preisach"
)

// NextSensitivity returns d m / d x in physical units for every candidate
// next field, evaluated as in Next mode. Sweep direction is held fixed, so
// a candidate equal to the last field reports only the linear terms.
func (md *Model) NextSensitivity(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: no candidates", preisach.ErrConfiguration)
	}
	if err := checkDomain("x", x, md.transform.Domain()); err != nil {
		return nil, err
	}
	hn, _, err := md.transform.Transform(x, nil)
	if err != nil {
		return nil, err
	}

	density := md.density.Value()
	total := 0.0
	for _, d := range density {
		total += d
	}
	if !(total > 0) {
		return nil, fmt.Errorf("%w: total hysteron density %g", preisach.ErrParameterBounds, total)
	}
	upstream := [][]float64{make([]float64, len(density))}
	for j, d := range density {
		upstream[0][j] = 2 * md.Scale() * d / total
	}

	cont := md.continuation()
	out := make([]float64, len(x))
	for i, v := range hn {
		grads, err := preisach.StateGradients([]float64{v}, md.mesh, md.opts.Temperature, cont, upstream)
		if err != nil {
			return nil, err
		}
		dmn := grads.Field[0] + md.Slope()
		dm := dmn*md.transform.ScaleM() + md.transform.TrendDerivative(v)
		out[i] = dm * md.transform.DerivativeH()
	}
	return out, nil
}
