// Package hybrid couples one hysteresis model per input column with a
// Gaussian process over their magnetizations:
//
//	fields -> hysteresis models -> magnetization -> min-max scaling -> GP
//
// Models are driven with explicit modes; their stored modes are never
// changed.
package hybrid

import (
	"fmt"
	"math"

	"github.com/san-kum/preisach/internal/gp"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

type Options struct {
	GP gp.FitOptions
}

type Hybrid struct {
	models []*model.Model
	gp     *gp.GP
	mode   model.Mode

	mLow, mSpan []float64
	yMean, yStd float64
}

// New sets each model's history from its column of trainX, evaluates the
// fitting magnetization and fits the process to trainY. No model history
// changes when a column is rejected.
func New(trainX [][]float64, trainY []float64, models []*model.Model, opts Options) (*Hybrid, error) {
	if len(trainX) != len(trainY) {
		return nil, fmt.Errorf("%w: train x has %d rows, train y has %d", preisach.ErrConfiguration, len(trainX), len(trainY))
	}
	if len(trainX) == 0 {
		return nil, fmt.Errorf("%w: no training data", preisach.ErrConfiguration)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no hysteresis models", preisach.ErrConfiguration)
	}
	seen := make(map[*model.Model]bool, len(models))
	for _, md := range models {
		if md == nil || seen[md] {
			return nil, fmt.Errorf("%w: hysteresis models must be unique", preisach.ErrConfiguration)
		}
		seen[md] = true
	}
	if err := checkColumns(trainX, len(models)); err != nil {
		return nil, err
	}

	// every column is checked on a clone so a failure leaves all models untouched
	for j, md := range models {
		if err := md.Clone().SetHistory(column(trainX, j), nil); err != nil {
			return nil, fmt.Errorf("model %d history: %w", j, err)
		}
	}
	for j, md := range models {
		if err := md.SetHistory(column(trainX, j), nil); err != nil {
			return nil, fmt.Errorf("model %d history: %w", j, err)
		}
	}

	hy := &Hybrid{models: models, gp: gp.New(len(models)), mode: model.Fitting}

	trainM, err := hy.Magnetization(trainX, model.Fitting)
	if err != nil {
		return nil, err
	}
	hy.mLow, hy.mSpan = bounds(trainM)
	hy.yMean, hy.yStd = standardize(trainY)

	y := make([]float64, len(trainY))
	for i, v := range trainY {
		y[i] = (v - hy.yMean) / hy.yStd
	}
	if err := hy.gp.Fit(hy.normalize(trainM), y, opts.GP); err != nil {
		return nil, fmt.Errorf("fit gp: %w", err)
	}
	return hy, nil
}

func (hy *Hybrid) Mode() model.Mode { return hy.mode }

func (hy *Hybrid) SetMode(mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", preisach.ErrUnknownMode, int(mode))
	}
	hy.mode = mode
	return nil
}

func (hy *Hybrid) Models() []*model.Model { return hy.models }

// ApplyFields applies each row of x to the models in order.
func (hy *Hybrid) ApplyFields(x [][]float64) error {
	if err := checkColumns(x, hy.gp.Dim()); err != nil {
		return err
	}
	for j, md := range hy.models {
		if err := md.ApplyField(column(x, j)...); err != nil {
			return fmt.Errorf("model %d: %w", j, err)
		}
	}
	return nil
}

// Magnetization evaluates every model on its column of x in physical units.
func (hy *Hybrid) Magnetization(x [][]float64, mode model.Mode) ([][]float64, error) {
	if err := checkColumns(x, hy.gp.Dim()); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i := range out {
		out[i] = make([]float64, len(hy.models))
	}
	for j, md := range hy.models {
		m, err := md.Evaluate(mode, column(x, j), true)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", j, err)
		}
		if len(m) != len(x) {
			return nil, fmt.Errorf("%w: model %d returned %d values for %d rows", preisach.ErrModeConsistency, j, len(m), len(x))
		}
		for i, v := range m {
			out[i][j] = v
		}
	}
	return out, nil
}

// NormalizedMagnetization scales the magnetization with the bounds learned
// from the training data.
func (hy *Hybrid) NormalizedMagnetization(x [][]float64, mode model.Mode) ([][]float64, error) {
	m, err := hy.Magnetization(x, mode)
	if err != nil {
		return nil, err
	}
	return hy.normalize(m), nil
}

// Posterior returns the predictive mean and variance in output units for
// candidate next fields. The hybrid must be in Next mode.
func (hy *Hybrid) Posterior(x [][]float64) ([]float64, []float64, error) {
	if hy.mode != model.Next {
		return nil, nil, fmt.Errorf("%w: posterior requires next mode", preisach.ErrModeConsistency)
	}
	m, err := hy.NormalizedMagnetization(x, hy.mode)
	if err != nil {
		return nil, nil, err
	}
	mean, variance, err := hy.gp.Predict(m)
	if err != nil {
		return nil, nil, err
	}
	for i := range mean {
		mean[i] = mean[i]*hy.yStd + hy.yMean
		variance[i] *= hy.yStd * hy.yStd
	}
	return mean, variance, nil
}

func (hy *Hybrid) normalize(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - hy.mLow[j]) / hy.mSpan[j]
		}
	}
	return out
}

func bounds(m [][]float64) ([]float64, []float64) {
	dim := len(m[0])
	low := make([]float64, dim)
	span := make([]float64, dim)
	for j := 0; j < dim; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range m {
			lo = math.Min(lo, row[j])
			hi = math.Max(hi, row[j])
		}
		low[j] = lo
		span[j] = hi - lo
		if span[j] == 0 {
			span[j] = 1
		}
	}
	return low, span
}

func standardize(y []float64) (float64, float64) {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	if len(y) < 2 {
		return mean, 1
	}
	ss := 0.0
	for _, v := range y {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(y)-1))
	if std == 0 {
		std = 1
	}
	return mean, std
}

func checkColumns(x [][]float64, n int) error {
	for i, row := range x {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", preisach.ErrConfiguration, i, len(row), n)
		}
	}
	return nil
}

func column(x [][]float64, j int) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = row[j]
	}
	return out
}
