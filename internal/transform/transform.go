// Package transform maps physical field and magnetization values into the
// normalized coordinates of the Preisach plane and back.
//
// Fields are mapped affinely from the valid domain onto [0, 1]. When
// magnetization data is supplied, a polynomial trend in the normalized
// field is removed and the residual is scaled into [-1, 1].
package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/preisach/internal/preisach"
)

type Options struct {
	// FixedDomain overrides the field domain derived from the data.
	FixedDomain *[2]float64
	// PolynomialDegree of the magnetization trend.
	PolynomialDegree int
	// PolynomialFitIterations caps the LBFGS iterations of the trend fit.
	PolynomialFitIterations int
}

func DefaultOptions() Options {
	return Options{PolynomialDegree: 1, PolynomialFitIterations: 3000}
}

// Transform is immutable apart from its frozen flag.
type Transform struct {
	opts    Options
	domain  [2]float64
	coeffs  []float64
	offsetM float64
	scaleM  float64
	frozen  bool
}

// New builds a transform from training data. Both h and m may be nil; m
// requires h.
func New(h, m []float64, opts Options) (*Transform, error) {
	if opts.PolynomialDegree < 0 {
		return nil, fmt.Errorf("%w: polynomial degree must be >= 0, got %d", preisach.ErrConfiguration, opts.PolynomialDegree)
	}
	if opts.PolynomialFitIterations <= 0 {
		return nil, fmt.Errorf("%w: polynomial fit iterations must be positive, got %d", preisach.ErrConfiguration, opts.PolynomialFitIterations)
	}
	if m != nil && h == nil {
		return nil, fmt.Errorf("%w: magnetization supplied without fields", preisach.ErrConfiguration)
	}
	if m != nil && len(m) != len(h) {
		return nil, fmt.Errorf("%w: h has %d values, m has %d", preisach.ErrConfiguration, len(h), len(m))
	}
	if err := checkFinite("h", h); err != nil {
		return nil, err
	}
	if err := checkFinite("m", m); err != nil {
		return nil, err
	}

	t := &Transform{opts: opts, domain: [2]float64{0, 1}, offsetM: 0, scaleM: 1}

	switch {
	case opts.FixedDomain != nil:
		d := *opts.FixedDomain
		if !(d[1] > d[0]) || math.IsInf(d[0], 0) || math.IsInf(d[1], 0) {
			return nil, fmt.Errorf("%w: fixed domain %v is empty", preisach.ErrConfiguration, d)
		}
		t.domain = d
	case len(h) > 0:
		lo, hi := floats.Min(h), floats.Max(h)
		if hi == lo {
			return nil, fmt.Errorf("%w: h has zero range", preisach.ErrConfiguration)
		}
		t.domain = [2]float64{lo, hi}
	}

	if len(m) == 0 {
		return t, nil
	}

	hn := t.normalizeH(h)
	coeffs, err := fitPolynomial(hn, m, opts.PolynomialDegree, opts.PolynomialFitIterations)
	if err != nil {
		return nil, err
	}
	t.coeffs = coeffs

	residual := make([]float64, len(m))
	for i := range m {
		residual[i] = m[i] - t.trend(hn[i])
	}
	lo, hi := floats.Min(residual), floats.Max(residual)
	t.offsetM = (hi + lo) / 2
	t.scaleM = (hi - lo) / 2
	if t.scaleM == 0 {
		t.scaleM = 1
	}
	return t, nil
}

// Refit builds a new transform for (h, m) with the same options. A frozen
// transform returns itself.
func (t *Transform) Refit(h, m []float64) (*Transform, error) {
	if t.frozen {
		return t, nil
	}
	return New(h, m, t.opts)
}

// Transform normalizes h and, when m is non-nil, m.
func (t *Transform) Transform(h, m []float64) ([]float64, []float64, error) {
	if m != nil && len(m) != len(h) {
		return nil, nil, fmt.Errorf("%w: h has %d values, m has %d", preisach.ErrConfiguration, len(h), len(m))
	}
	hn := t.normalizeH(h)
	if m == nil {
		return hn, nil, nil
	}
	mn := make([]float64, len(m))
	for i := range m {
		mn[i] = (m[i] - t.trend(hn[i]) - t.offsetM) / t.scaleM
	}
	return hn, mn, nil
}

// Untransform maps normalized values back to physical units. mn may be nil.
func (t *Transform) Untransform(hn, mn []float64) ([]float64, []float64, error) {
	if mn != nil && len(mn) != len(hn) {
		return nil, nil, fmt.Errorf("%w: h has %d values, m has %d", preisach.ErrConfiguration, len(hn), len(mn))
	}
	width := t.domain[1] - t.domain[0]
	h := make([]float64, len(hn))
	for i, v := range hn {
		h[i] = v*width + t.domain[0]
	}
	if mn == nil {
		return h, nil, nil
	}
	m := make([]float64, len(mn))
	for i := range mn {
		m[i] = mn[i]*t.scaleM + t.offsetM + t.trend(hn[i])
	}
	return h, m, nil
}

// UntransformM maps a single normalized magnetization at normalized field hn.
func (t *Transform) UntransformM(hn, mn float64) float64 {
	return mn*t.scaleM + t.offsetM + t.trend(hn)
}

// Domain returns the physical field interval mapped onto [0, 1].
func (t *Transform) Domain() [2]float64 { return t.domain }

func (t *Transform) Freeze() { t.frozen = true }

func (t *Transform) Frozen() bool { return t.frozen }

// DerivativeH returns d hn / d h.
func (t *Transform) DerivativeH() float64 {
	return 1 / (t.domain[1] - t.domain[0])
}

// ScaleM returns d m / d mn.
func (t *Transform) ScaleM() float64 { return t.scaleM }

// OffsetM returns the residual center removed before scaling.
func (t *Transform) OffsetM() float64 { return t.offsetM }

// Coefficients returns the trend polynomial in increasing degree order.
func (t *Transform) Coefficients() []float64 {
	out := make([]float64, len(t.coeffs))
	copy(out, t.coeffs)
	return out
}

// TrendDerivative returns d trend / d hn at hn.
func (t *Transform) TrendDerivative(hn float64) float64 {
	d := 0.0
	for k := len(t.coeffs) - 1; k >= 1; k-- {
		d = d*hn + float64(k)*t.coeffs[k]
	}
	return d
}

// Clone returns a copy that can be frozen independently.
func (t *Transform) Clone() *Transform {
	c := *t
	c.coeffs = t.Coefficients()
	if t.opts.FixedDomain != nil {
		d := *t.opts.FixedDomain
		c.opts.FixedDomain = &d
	}
	return &c
}

func (t *Transform) normalizeH(h []float64) []float64 {
	width := t.domain[1] - t.domain[0]
	hn := make([]float64, len(h))
	for i, v := range h {
		hn[i] = (v - t.domain[0]) / width
	}
	return hn
}

func (t *Transform) trend(hn float64) float64 {
	return horner(t.coeffs, hn)
}

func horner(coeffs []float64, x float64) float64 {
	v := 0.0
	for k := len(coeffs) - 1; k >= 0; k-- {
		v = v*x + coeffs[k]
	}
	return v
}

// fitPolynomial minimizes the mean squared error of a degree-d polynomial
// in x against y with LBFGS.
func fitPolynomial(x, y []float64, degree, iterations int) ([]float64, error) {
	n := float64(len(x))
	powers := make([][]float64, len(x))
	for i, xi := range x {
		powers[i] = make([]float64, degree+1)
		p := 1.0
		for k := range powers[i] {
			powers[i][k] = p
			p *= xi
		}
	}

	problem := optimize.Problem{
		Func: func(c []float64) float64 {
			loss := 0.0
			for i := range x {
				r := floats.Dot(c, powers[i]) - y[i]
				loss += r * r
			}
			return loss / n
		},
		Grad: func(grad, c []float64) {
			for k := range grad {
				grad[k] = 0
			}
			for i := range x {
				r := floats.Dot(c, powers[i]) - y[i]
				floats.AddScaled(grad, 2*r/n, powers[i])
			}
		},
	}

	init := make([]float64, degree+1)
	init[0] = floats.Sum(y) / n
	settings := &optimize.Settings{
		MajorIterations:   iterations,
		GradientThreshold: 1e-12,
	}

	res, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if res == nil {
		return nil, fmt.Errorf("fit trend polynomial: %w", err)
	}
	for _, c := range res.X {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: trend polynomial diverged", preisach.ErrConfiguration)
		}
	}
	return res.X, nil
}

func checkFinite(name string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s[%d] is not finite", preisach.ErrConfiguration, name, i)
		}
	}
	return nil
}
