// Package model implements the hysteresis model: a Preisach state engine
// over a fixed mesh, bounded density and output parameters, the field and
// magnetization history, and a mode-dispatched forward evaluator.
//
// A Model is not safe for concurrent use. Use Clone to evolve independent
// copies; clones share no buffers.
package model

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/mesh"
	"github.com/san-kum/preisach/internal/preisach"
	"github.com/san-kum/preisach/internal/transform"
)

// DomainTolerance is the slack allowed outside the valid field domain.
const DomainTolerance = 1e-4

type Options struct {
	MeshScale               float64
	MeshDensity             mesh.DensityFunc
	PolynomialDegree        int
	PolynomialFitIterations int
	Temperature             float64
	// UseNormalizedDensity bounds densities to [0, 1]; otherwise they are
	// only kept positive.
	UseNormalizedDensity bool
	FixedDomain          *[2]float64
	// FixedScaling freezes the transform and the offset and slope.
	FixedScaling bool
	Trainable    bool
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MeshScale:               1.0,
		PolynomialDegree:        1,
		PolynomialFitIterations: 3000,
		Temperature:             1e-2,
		UseNormalizedDensity:    true,
		Trainable:               true,
	}
}

type Model struct {
	opts      Options
	mesh      preisach.Mesh
	transform *transform.Transform
	logger    *slog.Logger

	density *preisach.BoundedParam
	offset  *preisach.BoundedParam
	scale   *preisach.BoundedParam
	slope   *preisach.BoundedParam

	trainable bool
	mode      Mode

	// normalized history; nil when unset
	h      []float64
	m      []float64
	states preisach.States
}

// New builds the mesh and parameters and, when trainH is non-nil, sets the
// history from (trainH, trainM).
func New(opts Options, trainH, trainM []float64) (*Model, error) {
	if math.IsNaN(opts.Temperature) || math.IsInf(opts.Temperature, 0) || opts.Temperature < 0 {
		return nil, fmt.Errorf("%w: temperature must be finite and >= 0, got %g", preisach.ErrConfiguration, opts.Temperature)
	}
	if trainM != nil && trainH == nil {
		return nil, fmt.Errorf("%w: train m supplied without train h", preisach.ErrConfiguration)
	}
	if opts.FixedDomain != nil {
		d := *opts.FixedDomain
		opts.FixedDomain = &d
	}

	pts, err := mesh.Generate(opts.MeshScale, opts.MeshDensity)
	if err != nil {
		return nil, err
	}

	t, err := transform.New(trainH, nil, transform.Options{
		FixedDomain:             opts.FixedDomain,
		PolynomialDegree:        opts.PolynomialDegree,
		PolynomialFitIterations: opts.PolynomialFitIterations,
	})
	if err != nil {
		return nil, err
	}

	var densityConstraint preisach.Constraint = preisach.Positive{}
	if opts.UseNormalizedDensity {
		densityConstraint = preisach.Interval{Lower: 0, Upper: 1}
	}

	md := &Model{
		opts:      opts,
		mesh:      pts,
		transform: t,
		logger:    logging.OrDiscard(opts.Logger),
		density:   preisach.NewBoundedParam("density", len(pts), densityConstraint),
		offset:    preisach.NewBoundedParam("offset", 1, preisach.Interval{Lower: -2000, Upper: 2000}),
		scale:     preisach.NewBoundedParam("scale", 1, preisach.Interval{Lower: 0, Upper: 2000}),
		slope:     preisach.NewBoundedParam("slope", 1, preisach.Interval{Lower: -2000, Upper: 2000}),
		mode:      Fitting,
	}
	if err := md.offset.SetScalar(0); err != nil {
		return nil, err
	}
	if err := md.scale.SetScalar(1); err != nil {
		return nil, err
	}
	if err := md.slope.SetScalar(0); err != nil {
		return nil, err
	}
	md.setTrainable(opts.Trainable)

	if trainH != nil {
		if err := md.SetHistory(trainH, trainM); err != nil {
			return nil, err
		}
	}

	if !opts.Trainable || opts.FixedScaling {
		md.transform.Freeze()
	}

	md.logger.Debug("hysteresis model created",
		"mesh_points", len(pts),
		"temperature", opts.Temperature,
		"history", len(md.h),
	)
	return md, nil
}

// Clone returns a deep copy. Mutating either model never affects the other.
func (md *Model) Clone() *Model {
	c := &Model{
		opts:      md.opts,
		mesh:      md.mesh.Clone(),
		transform: md.transform.Clone(),
		logger:    md.logger,
		density:   md.density.Clone(),
		offset:    md.offset.Clone(),
		scale:     md.scale.Clone(),
		slope:     md.slope.Clone(),
		trainable: md.trainable,
		mode:      md.mode,
		h:         cloneSlice(md.h),
		m:         cloneSlice(md.m),
		states:    md.states.Clone(),
	}
	if md.opts.FixedDomain != nil {
		d := *md.opts.FixedDomain
		c.opts.FixedDomain = &d
	}
	if md.states == nil {
		c.states = nil
	}
	return c
}

func (md *Model) Mode() Mode { return md.mode }

func (md *Model) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", preisach.ErrUnknownMode, int(mode))
	}
	md.mode = mode
	return nil
}

func (md *Model) Temperature() float64 { return md.opts.Temperature }

func (md *Model) Options() Options { return md.opts }

func (md *Model) NMeshPoints() int { return len(md.mesh) }

func (md *Model) Mesh() preisach.Mesh { return md.mesh.Clone() }

// ValidDomain returns the physical field interval accepted by the model.
func (md *Model) ValidDomain() [2]float64 { return md.transform.Domain() }

// Transform returns a copy of the current normalization.
func (md *Model) Transform() *transform.Transform { return md.transform.Clone() }

func cloneSlice(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
