// Package metrics scores predicted magnetization curves against
// measurements.
package metrics

import "math"

type Metric interface {
	Name() string
	Observe(h, measured, predicted float64)
	Value() float64
	Reset()
}

func Default() []Metric {
	return []Metric{NewRMSE(), NewMaxAbsError(), NewLoopArea()}
}

// Evaluate resets each metric, observes the curves and returns the values
// by name. Extra samples in the longer slice are ignored.
func Evaluate(ms []Metric, h, measured, predicted []float64) map[string]float64 {
	n := min(len(h), len(measured), len(predicted))
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i := 0; i < n; i++ {
			m.Observe(h[i], measured[i], predicted[i])
		}
		out[m.Name()] = m.Value()
	}
	return out
}

type RMSE struct {
	sum     float64
	samples int
}

func NewRMSE() *RMSE { return &RMSE{} }

func (e *RMSE) Name() string { return "rmse" }

func (e *RMSE) Observe(h, measured, predicted float64) {
	r := predicted - measured
	e.sum += r * r
	e.samples++
}

func (e *RMSE) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sum / float64(e.samples))
}

func (e *RMSE) Reset() {
	e.sum = 0
	e.samples = 0
}

type MaxAbsError struct {
	max float64
}

func NewMaxAbsError() *MaxAbsError { return &MaxAbsError{} }

func (e *MaxAbsError) Name() string { return "max_abs_error" }

func (e *MaxAbsError) Observe(h, measured, predicted float64) {
	e.max = math.Max(e.max, math.Abs(predicted-measured))
}

func (e *MaxAbsError) Value() float64 { return e.max }

func (e *MaxAbsError) Reset() { e.max = 0 }

// LoopArea integrates the predicted magnetization over the field path with
// the trapezoid rule and reports the absolute value. For a closed loop this
// is the enclosed area regardless of traversal direction, which grows with
// hysteresis loss.
type LoopArea struct {
	prevH, prevM float64
	integral     float64
	samples      int
}

func NewLoopArea() *LoopArea { return &LoopArea{} }

func (a *LoopArea) Name() string { return "loop_area" }

func (a *LoopArea) Observe(h, measured, predicted float64) {
	if a.samples > 0 {
		a.integral += (h - a.prevH) * (predicted + a.prevM) / 2
	}
	a.prevH, a.prevM = h, predicted
	a.samples++
}

func (a *LoopArea) Value() float64 { return math.Abs(a.integral) }

func (a *LoopArea) Reset() {
	a.prevH, a.prevM = 0, 0
	a.integral = 0
	a.samples = 0
}
