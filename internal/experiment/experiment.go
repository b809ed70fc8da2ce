// Package experiment fits one model per trial configuration concurrently
// and ranks the outcomes by fitting loss.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/preisach/internal/config"
	"github.com/san-kum/preisach/internal/fit"
	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/model"
)

var ErrNoSuccessfulTrial = errors.New("no trial fitted successfully")

// Trial is a named model configuration.
type Trial struct {
	Name  string
	Model config.ModelConfig
}

type Outcome struct {
	Trial  Trial
	Model  *model.Model
	Result *fit.Result
	Err    error
}

type Config struct {
	Fit fit.Config
	// Workers bounds concurrent fits; 0 uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Run fits every trial against (h, m). A failed trial is reported in its
// Outcome and does not stop the others. Outcomes keep trial order.
func Run(ctx context.Context, h, m []float64, trials []Trial, cfg Config) ([]Outcome, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("experiment: no trials")
	}
	logger := logging.OrDiscard(cfg.Logger)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(trials))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, trial := range trials {
		g.Go(func() error {
			out := Outcome{Trial: trial}
			defer func() { outcomes[i] = out }()

			tl := logger.With("trial", trial.Name)
			c := config.DefaultConfig()
			c.Model = trial.Model
			opts, err := c.ModelOptions(tl)
			if err != nil {
				out.Err = err
				return nil
			}
			md, err := model.New(opts, h, m)
			if err != nil {
				out.Err = err
				return nil
			}
			fcfg := cfg.Fit
			fcfg.Logger = tl
			res, err := fit.Fit(gctx, md, fcfg)
			out.Model, out.Result, out.Err = md, res, err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	logger.Info("experiment finished", "trials", len(trials), "err", err)
	return outcomes, err
}

// Rank returns the successful outcomes ordered by final loss.
func Rank(outcomes []Outcome) []Outcome {
	ranked := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil && !math.IsNaN(o.Result.FinalLoss) {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.FinalLoss < ranked[j].Result.FinalLoss
	})
	return ranked
}

// Best returns the outcome with the lowest final loss.
func Best(outcomes []Outcome) (*Outcome, error) {
	ranked := Rank(outcomes)
	if len(ranked) == 0 {
		return nil, ErrNoSuccessfulTrial
	}
	return &ranked[0], nil
}
