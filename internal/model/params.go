package model

import (
	"fmt"

	"github.com/san-kum/preisach/internal/preisach"
)

// Density returns the constrained hysteron densities.
func (md *Model) Density() []float64 { return md.density.Value() }

func (md *Model) SetDensity(v []float64) error { return md.density.SetValue(v) }

func (md *Model) Offset() float64 { return md.offset.Scalar() }

func (md *Model) SetOffset(v float64) error { return md.offset.SetScalar(v) }

func (md *Model) Scale() float64 { return md.scale.Scalar() }

func (md *Model) SetScale(v float64) error { return md.scale.SetScalar(v) }

func (md *Model) Slope() float64 { return md.slope.Scalar() }

func (md *Model) SetSlope(v float64) error { return md.slope.SetScalar(v) }

func (md *Model) Trainable() bool { return md.trainable }

// SetTrainable toggles gradient updates for every parameter. Offset and
// slope stay frozen under fixed scaling. Disabling training freezes the
// transform.
func (md *Model) SetTrainable(v bool) {
	md.setTrainable(v)
	if !v {
		md.transform.Freeze()
	}
}

func (md *Model) setTrainable(v bool) {
	md.trainable = v
	md.density.Trainable = v
	md.scale.Trainable = v
	md.offset.Trainable = v && !md.opts.FixedScaling
	md.slope.Trainable = v && !md.opts.FixedScaling
}

// Params returns the live density, offset, scale and slope parameters in
// that order. Optimizers update them through SetRaw.
func (md *Model) Params() []*preisach.BoundedParam {
	return []*preisach.BoundedParam{md.density, md.offset, md.scale, md.slope}
}

// FittingLoss returns the mean squared error between the fitting-mode
// output and the stored normalized magnetization, together with its
// gradient with respect to each parameter's raw values, ordered as Params.
func (md *Model) FittingLoss() (float64, [][]float64, error) {
	if !md.HasHistory() {
		return 0, nil, fmt.Errorf("%w: no history to fit", preisach.ErrModeConsistency)
	}
	pred, err := md.magnetization(md.states, md.h)
	if err != nil {
		return 0, nil, err
	}

	density := md.density.Value()
	total := 0.0
	for _, d := range density {
		total += d
	}
	scale := md.Scale()
	n := float64(len(pred))

	gDensity := make([]float64, len(density))
	var gOffset, gScale, gSlope, loss float64
	for i, p := range pred {
		r := p - md.m[i]
		loss += r * r / n
		g := 2 * r / n

		row := md.states[i]
		mean := 0.0
		for j, s := range row {
			mean += density[j] * s
		}
		mean /= total

		gScale += g * (2*mean - 1)
		gOffset += g
		gSlope += g * md.h[i]
		for j, s := range row {
			gDensity[j] += g * scale * 2 * (s - mean) / total
		}
	}

	grads := [][]float64{gDensity, {gOffset}, {gScale}, {gSlope}}
	for k, p := range md.Params() {
		dv := p.Derivatives()
		for j := range grads[k] {
			grads[k][j] *= dv[j]
		}
	}
	return loss, grads, nil
}
