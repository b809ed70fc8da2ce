package preisach

import (
	"math"
)

// Point is a single hysteron: it switches up when the field rises past
// Alpha and down when it falls past Beta.
type Point struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Mesh is the ordered set of hysterons on the Preisach plane.
type Mesh []Point

func (m Mesh) Clone() Mesh {
	c := make(Mesh, len(m))
	copy(c, m)
	return c
}

// Validate checks that the mesh is non-empty, finite and satisfies
// alpha >= beta for every point.
func (m Mesh) Validate() error {
	if len(m) == 0 {
		return configErrorf("mesh is empty")
	}
	for i, p := range m {
		if !finite(p.Alpha) || !finite(p.Beta) {
			return configErrorf("mesh point %d is not finite", i)
		}
		if p.Alpha < p.Beta {
			return configErrorf("mesh point %d has alpha %g < beta %g", i, p.Alpha, p.Beta)
		}
	}
	return nil
}

// Alphas returns the up thresholds.
func (m Mesh) Alphas() []float64 {
	out := make([]float64, len(m))
	for i, p := range m {
		out[i] = p.Alpha
	}
	return out
}

// Betas returns the down thresholds.
func (m Mesh) Betas() []float64 {
	out := make([]float64, len(m))
	for i, p := range m {
		out[i] = p.Beta
	}
	return out
}

// States holds one row of hysteron states per history step.
// Shape is (steps, len(mesh)) and every value lies in [0, 1].
type States [][]float64

func (s States) Clone() States {
	c := make(States, len(s))
	for i, row := range s {
		c[i] = make([]float64, len(row))
		copy(c[i], row)
	}
	return c
}

// Last returns a copy of the final row, or nil for empty states.
func (s States) Last() []float64 {
	if len(s) == 0 {
		return nil
	}
	row := make([]float64, len(s[len(s)-1]))
	copy(row, s[len(s)-1])
	return row
}

// Continue builds the continuation for the field history that produced s.
func (s States) Continue(h []float64) *Continuation {
	if len(s) == 0 || len(h) == 0 {
		return nil
	}
	return &Continuation{State: s.Last(), Field: h[len(h)-1]}
}

// Continuation seeds the recursion with a prior state and field instead
// of negative saturation.
type Continuation struct {
	State []float64
	Field float64
}

func (c *Continuation) Clone() *Continuation {
	if c == nil {
		return nil
	}
	state := make([]float64, len(c.State))
	copy(state, c.State)
	return &Continuation{State: state, Field: c.Field}
}

func (c *Continuation) validate(n int) error {
	if c == nil {
		return nil
	}
	if len(c.State) != n {
		return configErrorf("continuation state has %d values, mesh has %d", len(c.State), n)
	}
	if !finite(c.Field) {
		return configErrorf("continuation field is not finite")
	}
	for i, v := range c.State {
		if !finite(v) || v < 0 || v > 1 {
			return configErrorf("continuation state %d = %g outside [0, 1]", i, v)
		}
	}
	return nil
}

// Sigmoid is the numerically stable logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// relay is the soft switch sigma(x/T); a zero temperature gives the hard step.
func relay(x, temperature float64) float64 {
	if temperature == 0 {
		if x > 0 {
			return 1
		}
		return 0
	}
	return Sigmoid(x / temperature)
}

// relayGrad returns d relay / d x.
func relayGrad(v, temperature float64) float64 {
	if temperature == 0 {
		return 0
	}
	return v * (1 - v) / temperature
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateTemperature(t float64) error {
	if math.IsNaN(t) || t < 0 || math.IsInf(t, 0) {
		return configErrorf("temperature must be finite and >= 0, got %g", t)
	}
	return nil
}

func validateFields(name string, h []float64) error {
	if len(h) == 0 {
		return configErrorf("%s is empty", name)
	}
	for i, v := range h {
		if !finite(v) {
			return configErrorf("%s[%d] is not finite", name, i)
		}
	}
	return nil
}
