package model

import (
	"fmt"

	"github.com/san-kum/preisach/internal/preisach"
)

// SetHistory replaces the stored history. When the model is trainable and
// scaling is not fixed the transform is refitted to (h, m) first. Without m
// the magnetization is derived by regression over h. Nothing changes when
// an error is returned.
func (md *Model) SetHistory(h, m []float64) error {
	if len(h) == 0 {
		return fmt.Errorf("%w: history h is empty", preisach.ErrConfiguration)
	}
	if m != nil {
		if len(m) != len(h) {
			return fmt.Errorf("%w: history h has %d values, m has %d", preisach.ErrConfiguration, len(h), len(m))
		}
		if equal(h, m) {
			return fmt.Errorf("%w: train h and train m cannot be equal", preisach.ErrConfiguration)
		}
	}

	t := md.transform
	if md.trainable && !md.opts.FixedScaling {
		next, err := t.Refit(h, m)
		if err != nil {
			return err
		}
		t = next
	}
	if err := checkDomain("h", h, t.Domain()); err != nil {
		return err
	}

	hn, mn, err := t.Transform(h, m)
	if err != nil {
		return err
	}
	states, err := preisach.ComputeStates(hn, md.mesh, md.opts.Temperature, nil)
	if err != nil {
		return err
	}
	if mn == nil {
		mn, err = md.magnetization(states, hn)
		if err != nil {
			return err
		}
	}

	md.transform = t
	md.h = hn
	md.m = mn
	md.states = states
	md.logger.Debug("history set", "steps", len(hn), "derived_m", m == nil)
	return nil
}

// ApplyField appends physical field values to the history, creating it when
// absent. The magnetization history is extended with the model's own
// prediction for the new steps.
func (md *Model) ApplyField(h ...float64) error {
	if len(h) == 0 {
		return fmt.Errorf("%w: no field values to apply", preisach.ErrConfiguration)
	}
	if err := checkDomain("h", h, md.transform.Domain()); err != nil {
		return err
	}

	hn, _, err := md.transform.Transform(h, nil)
	if err != nil {
		return err
	}

	var cont *preisach.Continuation
	if md.HasHistory() {
		cont = md.states.Continue(md.h)
	}
	tail, err := preisach.ComputeStates(hn, md.mesh, md.opts.Temperature, cont)
	if err != nil {
		return err
	}
	mn, err := md.magnetization(tail, hn)
	if err != nil {
		return err
	}

	md.h = append(cloneSlice(md.h), hn...)
	md.m = append(cloneSlice(md.m), mn...)
	md.states = append(md.states.Clone(), tail...)
	return nil
}

// ResetHistory discards the history and cached states.
func (md *Model) ResetHistory() {
	md.h = nil
	md.m = nil
	md.states = nil
}

func (md *Model) HasHistory() bool { return len(md.h) > 0 }

// HistoryH returns the stored fields in physical units, or nil.
func (md *Model) HistoryH() []float64 {
	if !md.HasHistory() {
		return nil
	}
	h, _, _ := md.transform.Untransform(md.h, nil)
	return h
}

// HistoryM returns the stored magnetization in physical units, or nil.
func (md *Model) HistoryM() []float64 {
	if !md.HasHistory() {
		return nil
	}
	_, m, _ := md.transform.Untransform(md.h, md.m)
	return m
}

// NormalizedHistory returns copies of the normalized field and
// magnetization histories.
func (md *Model) NormalizedHistory() ([]float64, []float64) {
	return cloneSlice(md.h), cloneSlice(md.m)
}

// States returns a copy of the cached state matrix, or nil.
func (md *Model) States() preisach.States {
	if md.states == nil {
		return nil
	}
	return md.states.Clone()
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func checkDomain(name string, values []float64, domain [2]float64) error {
	var bad []float64
	for _, v := range values {
		if !(v >= domain[0]-DomainTolerance && v <= domain[1]+DomainTolerance) {
			bad = append(bad, v)
		}
	}
	if len(bad) > 0 {
		return &preisach.DomainError{Name: name, Values: bad, Min: domain[0], Max: domain[1]}
	}
	return nil
}
