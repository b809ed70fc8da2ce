package model

import (
	"fmt"
	"math"

	"github.com/san-kum/preisach/internal/preisach"
)

const (
	fitRelTol = 1e-5
	fitAbsTol = 1e-8
)

// Forward evaluates x in the model's current mode.
func (md *Model) Forward(x []float64, returnReal bool) ([]float64, error) {
	return md.Evaluate(md.mode, x, returnReal)
}

// Evaluate computes the magnetization for x in the given mode without
// touching the model's stored mode or history. x may be nil only in
// Current mode. The result is normalized unless returnReal is set.
func (md *Model) Evaluate(mode Mode, x []float64, returnReal bool) ([]float64, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", preisach.ErrUnknownMode, int(mode))
	}
	if len(x) > 0 {
		if err := checkDomain("x", x, md.transform.Domain()); err != nil {
			return nil, err
		}
	} else if mode != Current {
		return nil, fmt.Errorf("%w: a field is required in %s mode", preisach.ErrModeConsistency, mode)
	}

	var (
		hn     []float64
		states preisach.States
		err    error
	)

	switch mode {
	case Fitting:
		if !md.HasHistory() {
			return nil, fmt.Errorf("%w: no history to fit, set one with SetHistory or use future mode", preisach.ErrModeConsistency)
		}
		if len(md.h) != len(md.m) {
			return nil, fmt.Errorf("%w: history datasets must match shape for fitting", preisach.ErrModeConsistency)
		}
		if !allClose(x, md.HistoryH()) {
			return nil, fmt.Errorf("%w: fitting mode requires the stored history fields", preisach.ErrModeConsistency)
		}
		hn, states = md.h, md.states

	case Regression:
		hn, _, err = md.transform.Transform(x, nil)
		if err != nil {
			return nil, err
		}
		states, err = preisach.ComputeStates(hn, md.mesh, md.opts.Temperature, nil)

	case Current:
		if !md.HasHistory() {
			return nil, fmt.Errorf("%w: no history to determine the current state", preisach.ErrModeConsistency)
		}
		hn = md.h[len(md.h)-1:]
		states = preisach.States{md.states.Last()}

	case Future:
		if !md.HasHistory() {
			return nil, fmt.Errorf("%w: future mode continues from a history, set one first", preisach.ErrModeConsistency)
		}
		hn, _, err = md.transform.Transform(x, nil)
		if err != nil {
			return nil, err
		}
		states, err = preisach.ComputeStates(hn, md.mesh, md.opts.Temperature, md.states.Continue(md.h))

	case Next:
		hn, _, err = md.transform.Transform(x, nil)
		if err != nil {
			return nil, err
		}
		states, err = preisach.ComputeBatchedStates(hn, md.mesh, md.continuation(), md.opts.Temperature)
	}
	if err != nil {
		return nil, err
	}

	mn, err := md.magnetization(states, hn)
	if err != nil {
		return nil, err
	}
	if !returnReal {
		return mn, nil
	}
	_, physical, err := md.transform.Untransform(hn, mn)
	return physical, err
}

// NegativeSaturation returns the physical magnetization with every
// hysteron down at the lower end of the domain.
func (md *Model) NegativeSaturation() float64 {
	return md.transform.UntransformM(0, md.Offset()-md.Scale())
}

// continuation seeds next-step predictions; nil means saturation.
func (md *Model) continuation() *preisach.Continuation {
	if !md.HasHistory() {
		return nil
	}
	return md.states.Continue(md.h)
}

// magnetization maps states to normalized output:
// scale * sum_j d_j (2 s_j - 1) / sum_j d_j + offset + slope * h.
func (md *Model) magnetization(states preisach.States, hn []float64) ([]float64, error) {
	density := md.density.Value()
	total := 0.0
	for _, d := range density {
		total += d
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: total hysteron density %g", preisach.ErrParameterBounds, total)
	}

	scale, offset, slope := md.Scale(), md.Offset(), md.Slope()
	out := make([]float64, len(states))
	for i, row := range states {
		out[i] = scale*spin(row, density, total) + offset + slope*hn[i]
	}
	return out, nil
}

// spin is the density-weighted mean of 2s - 1, in [-1, 1].
func spin(row, density []float64, total float64) float64 {
	acc := 0.0
	for j, s := range row {
		acc += density[j] * s
	}
	return 2*acc/total - 1
}

func allClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > fitAbsTol+fitRelTol*math.Abs(b[i]) {
			return false
		}
	}
	return true
}
