// Package fit trains a hysteresis model's parameters against its stored
// history by minimizing the fitting-mode mean squared error with LBFGS.
package fit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

type Config struct {
	MaxIterations     int
	GradientThreshold float64
	Logger            *slog.Logger
}

func DefaultConfig() Config {
	return Config{MaxIterations: 500, GradientThreshold: 1e-8}
}

type Result struct {
	InitialLoss float64
	FinalLoss   float64
	Iterations  int
	Evaluations int
	Status      string
	Density     []float64
	Offset      float64
	Scale       float64
	Slope       float64
	Duration    time.Duration
}

// Fit updates the trainable parameters of md in place. Frozen parameters
// are left untouched. On cancellation the best parameters found so far are
// kept and the context error is returned.
func Fit(ctx context.Context, md *model.Model, cfg Config) (*Result, error) {
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive", preisach.ErrConfiguration)
	}
	logger := logging.OrDiscard(cfg.Logger)

	var params []*preisach.BoundedParam
	var slots []int
	for k, p := range md.Params() {
		if p.Trainable {
			params = append(params, p)
			slots = append(slots, k)
		}
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: model has no trainable parameters", preisach.ErrConfiguration)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	initial, _, err := md.FittingLoss()
	if err != nil {
		return nil, err
	}
	x0 := pack(params)
	start := time.Now()
	logger.Info("fit started", "params", len(x0), "loss", initial)

	evaluate := func(x []float64) (float64, [][]float64, error) {
		if err := unpack(params, x); err != nil {
			return 0, nil, err
		}
		return md.FittingLoss()
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss, _, err := evaluate(x)
			if err != nil {
				return math.Inf(1)
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			_, grads, err := evaluate(x)
			for i := range grad {
				grad[i] = 0
			}
			if err != nil {
				return
			}
			i := 0
			for _, k := range slots {
				i += copy(grad[i:], grads[k])
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIterations,
		GradientThreshold: cfg.GradientThreshold,
		Recorder:          &recorder{ctx: ctx, logger: logger},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if res == nil {
		_ = unpack(params, x0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("fit: %w", err)
	}
	if uerr := unpack(params, res.X); uerr != nil {
		_ = unpack(params, x0)
		return nil, uerr
	}

	final, _, lerr := md.FittingLoss()
	if lerr != nil {
		return nil, lerr
	}
	result := &Result{
		InitialLoss: initial,
		FinalLoss:   final,
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
		Density:     md.Density(),
		Offset:      md.Offset(),
		Scale:       md.Scale(),
		Slope:       md.Slope(),
		Duration:    time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("fit interrupted", "loss", final, "iterations", result.Iterations)
		return result, ctxErr
	}
	if err != nil {
		logger.Warn("fit stopped early", "status", result.Status, "error", err)
	}
	logger.Info("fit finished",
		"loss", final,
		"iterations", result.Iterations,
		"status", result.Status,
		"duration", result.Duration,
	)
	return result, nil
}

// recorder stops the optimizer when the context ends.
type recorder struct {
	ctx    context.Context
	logger *slog.Logger
}

func (r *recorder) Init() error { return r.ctx.Err() }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration != 0 && stats.MajorIterations%50 == 0 {
		r.logger.Debug("fit iteration", "iteration", stats.MajorIterations, "loss", loc.F)
	}
	return r.ctx.Err()
}

func pack(params []*preisach.BoundedParam) []float64 {
	var x []float64
	for _, p := range params {
		x = append(x, p.Raw()...)
	}
	return x
}

func unpack(params []*preisach.BoundedParam, x []float64) error {
	i := 0
	for _, p := range params {
		n := p.Len()
		if err := p.SetRaw(x[i : i+n]); err != nil {
			return err
		}
		i += n
	}
	return nil
}
