// Package gp implements exact Gaussian process regression with an
// anisotropic RBF kernel.
package gp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var (
	ErrShape     = errors.New("gp: invalid shape")
	ErrNotFitted = errors.New("gp: no training data")
	ErrSingular  = errors.New("gp: covariance is not positive definite")
)

const (
	minNoise  = 1e-6
	maxJitter = 1e-4
)

// Hyperparameters of the RBF kernel and the Gaussian likelihood.
type Hyperparameters struct {
	Lengthscales   []float64
	SignalVariance float64
	NoiseVariance  float64
}

func DefaultHyperparameters(dim int) Hyperparameters {
	ls := make([]float64, dim)
	for i := range ls {
		ls[i] = 1
	}
	return Hyperparameters{Lengthscales: ls, SignalVariance: 1, NoiseVariance: 1e-2}
}

func (hp Hyperparameters) validate(dim int) error {
	if len(hp.Lengthscales) != dim {
		return fmt.Errorf("%w: %d lengthscales for %d inputs", ErrShape, len(hp.Lengthscales), dim)
	}
	for _, l := range hp.Lengthscales {
		if !(l > 0) || math.IsInf(l, 0) {
			return fmt.Errorf("gp: lengthscale %g must be positive", l)
		}
	}
	if !(hp.SignalVariance > 0) || !(hp.NoiseVariance >= 0) {
		return fmt.Errorf("gp: variances must be positive, got signal %g noise %g", hp.SignalVariance, hp.NoiseVariance)
	}
	return nil
}

func (hp Hyperparameters) kernel(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		r := (a[i] - b[i]) / hp.Lengthscales[i]
		d += r * r
	}
	return hp.SignalVariance * math.Exp(-0.5*d)
}

type GP struct {
	dim   int
	hp    Hyperparameters
	x     [][]float64
	y     []float64
	chol  mat.Cholesky
	alpha *mat.VecDense
}

func New(dim int) *GP {
	return &GP{dim: dim, hp: DefaultHyperparameters(dim)}
}

func (g *GP) Dim() int { return g.dim }

func (g *GP) Hyperparameters() Hyperparameters {
	hp := g.hp
	hp.Lengthscales = append([]float64(nil), g.hp.Lengthscales...)
	return hp
}

// SetHyperparameters replaces the kernel settings and refactorizes any
// stored training data.
func (g *GP) SetHyperparameters(hp Hyperparameters) error {
	if err := hp.validate(g.dim); err != nil {
		return err
	}
	prev := g.hp
	g.hp = hp
	g.hp.Lengthscales = append([]float64(nil), hp.Lengthscales...)
	if g.x == nil {
		return nil
	}
	if err := g.factorize(); err != nil {
		g.hp = prev
		return err
	}
	return nil
}

// SetData conditions the process on (x, y) with the current hyperparameters.
func (g *GP) SetData(x [][]float64, y []float64) error {
	if err := g.checkInputs(x); err != nil {
		return err
	}
	if len(y) != len(x) {
		return fmt.Errorf("%w: %d inputs, %d targets", ErrShape, len(x), len(y))
	}
	if len(x) == 0 {
		return fmt.Errorf("%w: no training points", ErrShape)
	}
	prevX, prevY := g.x, g.y
	g.x = cloneRows(x)
	g.y = append([]float64(nil), y...)
	if err := g.factorize(); err != nil {
		g.x, g.y = prevX, prevY
		return err
	}
	return nil
}

func (g *GP) factorize() error {
	n := len(g.x)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.SetSym(i, j, g.hp.kernel(g.x[i], g.x[j]))
		}
	}
	noise := math.Max(g.hp.NoiseVariance, minNoise)
	for jitter := 0.0; jitter <= maxJitter; jitter = nextJitter(jitter) {
		kn := mat.NewSymDense(n, nil)
		kn.CopySym(k)
		for i := 0; i < n; i++ {
			kn.SetSym(i, i, k.At(i, i)+noise+jitter)
		}
		var chol mat.Cholesky
		if chol.Factorize(kn) {
			alpha := mat.NewVecDense(n, nil)
			if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, append([]float64(nil), g.y...))); err != nil {
				return fmt.Errorf("%w: %v", ErrSingular, err)
			}
			g.chol = chol
			g.alpha = alpha
			return nil
		}
	}
	return ErrSingular
}

func nextJitter(j float64) float64 {
	if j == 0 {
		return 1e-8
	}
	return j * 10
}

// LogMarginalLikelihood of the training targets under the current
// hyperparameters.
func (g *GP) LogMarginalLikelihood() (float64, error) {
	if g.alpha == nil {
		return 0, ErrNotFitted
	}
	n := float64(len(g.y))
	fit := mat.Dot(mat.NewVecDense(len(g.y), append([]float64(nil), g.y...)), g.alpha)
	return -0.5*fit - 0.5*g.chol.LogDet() - 0.5*n*math.Log(2*math.Pi), nil
}

// Predict returns the latent posterior mean and variance at each row of x.
func (g *GP) Predict(x [][]float64) ([]float64, []float64, error) {
	if g.alpha == nil {
		return nil, nil, ErrNotFitted
	}
	if err := g.checkInputs(x); err != nil {
		return nil, nil, err
	}
	n := len(g.x)
	mean := make([]float64, len(x))
	variance := make([]float64, len(x))
	ks := mat.NewVecDense(n, nil)
	v := mat.NewVecDense(n, nil)
	for i, xi := range x {
		for j, xj := range g.x {
			ks.SetVec(j, g.hp.kernel(xi, xj))
		}
		mean[i] = mat.Dot(ks, g.alpha)
		if err := g.chol.SolveVecTo(v, ks); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		variance[i] = math.Max(g.hp.SignalVariance-mat.Dot(ks, v), 0)
	}
	return mean, variance, nil
}

// FitOptions bound the hyperparameter search.
type FitOptions struct {
	MaxEvaluations int
}

// Fit conditions on (x, y) and maximizes the log marginal likelihood over
// the log hyperparameters with Nelder-Mead, starting from the current ones.
func (g *GP) Fit(x [][]float64, y []float64, opts FitOptions) error {
	if err := g.SetData(x, y); err != nil {
		return err
	}
	if opts.MaxEvaluations <= 0 {
		opts.MaxEvaluations = 400
	}

	start := g.Hyperparameters()
	theta := make([]float64, g.dim+2)
	for i, l := range start.Lengthscales {
		theta[i] = math.Log(l)
	}
	theta[g.dim] = math.Log(start.SignalVariance)
	theta[g.dim+1] = math.Log(math.Max(start.NoiseVariance, minNoise))

	decode := func(t []float64) Hyperparameters {
		hp := Hyperparameters{Lengthscales: make([]float64, g.dim)}
		for i := range hp.Lengthscales {
			hp.Lengthscales[i] = math.Exp(clamp(t[i], -8, 8))
		}
		hp.SignalVariance = math.Exp(clamp(t[g.dim], -8, 8))
		hp.NoiseVariance = math.Exp(clamp(t[g.dim+1], -14, 4))
		return hp
	}

	probe := &GP{dim: g.dim, x: g.x, y: g.y}
	problem := optimize.Problem{
		Func: func(t []float64) float64 {
			probe.hp = decode(t)
			if err := probe.factorize(); err != nil {
				return math.MaxFloat64 / 4
			}
			lml, err := probe.LogMarginalLikelihood()
			if err != nil || math.IsNaN(lml) {
				return math.MaxFloat64 / 4
			}
			return -lml
		},
	}

	res, err := optimize.Minimize(problem, theta, &optimize.Settings{FuncEvaluations: opts.MaxEvaluations}, &optimize.NelderMead{})
	if res == nil {
		return fmt.Errorf("gp hyperparameters: %w", err)
	}
	if setErr := g.SetHyperparameters(decode(res.X)); setErr != nil {
		return g.SetHyperparameters(start)
	}
	return nil
}

func (g *GP) checkInputs(x [][]float64) error {
	for i, row := range x {
		if len(row) != g.dim {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), g.dim)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func cloneRows(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
