package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

type Config struct {
	GridPoints       int
	RefineIterations int
	Logger           *slog.Logger
}

func DefaultConfig() Config {
	return Config{GridPoints: 101, RefineIterations: 50}
}

type Suggestion struct {
	Target    float64
	Field     float64
	Predicted float64
	Error     float64
	// Refined is set when gradient refinement improved on the grid.
	Refined bool
}

// Suggest returns the next field whose predicted magnetization is closest
// to target. The grid optimum is polished with LBFGS on a logistic
// reparameterization of the domain, using the model's next-step
// sensitivity as the gradient.
func Suggest(ctx context.Context, md *model.Model, target float64, cfg Config) (*Suggestion, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return nil, fmt.Errorf("%w: target must be finite", preisach.ErrConfiguration)
	}
	logger := logging.OrDiscard(cfg.Logger)

	best, err := NewGridSearch(cfg.GridPoints).Search(ctx, md, target)
	if err != nil {
		return nil, err
	}
	s := &Suggestion{Target: target, Field: best.Field, Predicted: best.Predicted, Error: best.Error}
	logger.Debug("grid search done", "field", best.Field, "error", best.Error)

	if cfg.RefineIterations <= 0 || best.Error == 0 {
		return s, nil
	}

	refined, ok := refine(ctx, md, target, best, cfg.RefineIterations)
	if ok && refined.Error < s.Error {
		s.Field, s.Predicted, s.Error, s.Refined = refined.Field, refined.Predicted, refined.Error, true
	}
	if err := ctx.Err(); err != nil {
		return s, err
	}
	logger.Info("next field suggested", "target", target, "field", s.Field, "error", s.Error, "refined", s.Refined)
	return s, nil
}

func refine(ctx context.Context, md *model.Model, target float64, start Candidate, iterations int) (Candidate, bool) {
	domain := md.ValidDomain()
	width := domain[1] - domain[0]
	toField := func(z float64) float64 { return domain[0] + width*preisach.Sigmoid(z) }

	p := (start.Field - domain[0]) / width
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	z0 := math.Log(p / (1 - p))

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			pred, err := md.Evaluate(model.Next, []float64{toField(z[0])}, true)
			if err != nil {
				return math.Inf(1)
			}
			r := pred[0] - target
			return r * r
		},
		Grad: func(grad, z []float64) {
			grad[0] = 0
			field := toField(z[0])
			pred, err := md.Evaluate(model.Next, []float64{field}, true)
			if err != nil {
				return
			}
			sens, err := md.NextSensitivity([]float64{field})
			if err != nil {
				return
			}
			sg := preisach.Sigmoid(z[0])
			grad[0] = 2 * (pred[0] - target) * sens[0] * width * sg * (1 - sg)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: iterations,
		Recorder:        ctxRecorder{ctx},
	}

	res, _ := optimize.Minimize(problem, []float64{z0}, settings, &optimize.LBFGS{})
	if res == nil {
		return Candidate{}, false
	}
	field := toField(res.X[0])
	pred, err := md.Evaluate(model.Next, []float64{field}, true)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{Field: field, Predicted: pred[0], Error: math.Abs(pred[0] - target)}, true
}

type ctxRecorder struct{ ctx context.Context }

func (r ctxRecorder) Init() error { return r.ctx.Err() }

func (r ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}
