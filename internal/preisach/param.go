package preisach

import (
	"fmt"
	"math"
)

// boundEpsilon keeps inverse-mapped values finite for inputs on a bound.
const boundEpsilon = 1e-12

// Constraint is a monotone invertible map from an unconstrained raw value
// to a bounded value.
type Constraint interface {
	Transform(raw float64) float64
	Inverse(value float64) (float64, error)
	// Derivative returns d Transform / d raw at raw.
	Derivative(raw float64) float64
	Bounds() (lower, upper float64)
}

// Interval maps raw values into [Lower, Upper] through a logistic.
type Interval struct {
	Lower, Upper float64
}

func (c Interval) Transform(raw float64) float64 {
	return c.Lower + (c.Upper-c.Lower)*Sigmoid(raw)
}

func (c Interval) Inverse(value float64) (float64, error) {
	if math.IsNaN(value) || value < c.Lower || value > c.Upper {
		return 0, fmt.Errorf("%w: %g not in [%g, %g]", ErrParameterBounds, value, c.Lower, c.Upper)
	}
	p := (value - c.Lower) / (c.Upper - c.Lower)
	p = math.Min(math.Max(p, boundEpsilon), 1-boundEpsilon)
	return math.Log(p / (1 - p)), nil
}

func (c Interval) Derivative(raw float64) float64 {
	s := Sigmoid(raw)
	return (c.Upper - c.Lower) * s * (1 - s)
}

func (c Interval) Bounds() (float64, float64) { return c.Lower, c.Upper }

// Positive maps raw values onto (0, inf) through softplus.
type Positive struct{}

func (Positive) Transform(raw float64) float64 {
	if raw > 20 {
		return raw + math.Log1p(math.Exp(-raw))
	}
	return math.Log1p(math.Exp(raw))
}

func (Positive) Inverse(value float64) (float64, error) {
	if math.IsNaN(value) || value < 0 || math.IsInf(value, 1) {
		return 0, fmt.Errorf("%w: %g not positive", ErrParameterBounds, value)
	}
	value = math.Max(value, boundEpsilon)
	if value > 20 {
		return value + math.Log(-math.Expm1(-value)), nil
	}
	return math.Log(math.Expm1(value)), nil
}

func (Positive) Derivative(raw float64) float64 { return Sigmoid(raw) }

func (Positive) Bounds() (float64, float64) { return 0, math.Inf(1) }

// BoundedParam stores a raw unconstrained vector and exposes its
// constrained value. Setting a value stores the inverse-mapped raw value.
type BoundedParam struct {
	Name       string
	Trainable  bool
	raw        []float64
	constraint Constraint
}

// NewBoundedParam creates a trainable parameter of length n with raw zeros.
func NewBoundedParam(name string, n int, c Constraint) *BoundedParam {
	return &BoundedParam{
		Name:       name,
		Trainable:  true,
		raw:        make([]float64, n),
		constraint: c,
	}
}

func (p *BoundedParam) Len() int { return len(p.raw) }

func (p *BoundedParam) Constraint() Constraint { return p.constraint }

// Value returns the constrained values.
func (p *BoundedParam) Value() []float64 {
	out := make([]float64, len(p.raw))
	for i, r := range p.raw {
		out[i] = p.constraint.Transform(r)
	}
	return out
}

// Scalar returns the first constrained value.
func (p *BoundedParam) Scalar() float64 {
	return p.constraint.Transform(p.raw[0])
}

// SetValue inverse-maps and stores values. Nothing is stored when any
// value violates the constraint.
func (p *BoundedParam) SetValue(values []float64) error {
	if len(values) != len(p.raw) {
		return fmt.Errorf("%w: %s expects %d values, got %d", ErrConfiguration, p.Name, len(p.raw), len(values))
	}
	raw := make([]float64, len(values))
	for i, v := range values {
		r, err := p.constraint.Inverse(v)
		if err != nil {
			return fmt.Errorf("%s[%d]: %w", p.Name, i, err)
		}
		raw[i] = r
	}
	p.raw = raw
	return nil
}

// SetScalar fills every entry with the same constrained value.
func (p *BoundedParam) SetScalar(v float64) error {
	values := make([]float64, len(p.raw))
	for i := range values {
		values[i] = v
	}
	return p.SetValue(values)
}

// Raw returns a copy of the unconstrained storage.
func (p *BoundedParam) Raw() []float64 {
	out := make([]float64, len(p.raw))
	copy(out, p.raw)
	return out
}

func (p *BoundedParam) SetRaw(raw []float64) error {
	if len(raw) != len(p.raw) {
		return fmt.Errorf("%w: %s expects %d raw values, got %d", ErrConfiguration, p.Name, len(p.raw), len(raw))
	}
	for i, r := range raw {
		if !finite(r) {
			return fmt.Errorf("%w: %s raw[%d] is not finite", ErrParameterBounds, p.Name, i)
		}
	}
	copy(p.raw, raw)
	return nil
}

// Derivatives returns d value / d raw for each entry.
func (p *BoundedParam) Derivatives() []float64 {
	out := make([]float64, len(p.raw))
	for i, r := range p.raw {
		out[i] = p.constraint.Derivative(r)
	}
	return out
}

func (p *BoundedParam) Clone() *BoundedParam {
	return &BoundedParam{
		Name:       p.Name,
		Trainable:  p.Trainable,
		raw:        p.Raw(),
		constraint: p.constraint,
	}
}
