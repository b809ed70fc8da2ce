package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

// parallelogram loop: saturates at +-1, switches at h = +-0.5
func squareLoop() ([]float64, []float64) {
	h := []float64{-1, 0, 0.4, 0.6, 1, 0, -0.4, -0.6, -1}
	m := []float64{-1, -1, -1, 1, 1, 1, 1, -1, -1}
	return h, m
}

func TestCharacterize(t *testing.T) {
	h, m := squareLoop()
	c, err := Characterize(h, m)
	if err != nil {
		t.Fatalf("Characterize failed: %v", err)
	}

	if len(c.CoerciveFields) != 2 {
		t.Fatalf("expected 2 coercive fields, got %v", c.CoerciveFields)
	}
	if math.Abs(c.Coercivity-0.5) > 1e-12 {
		t.Errorf("expected coercivity 0.5, got %f", c.Coercivity)
	}
	if len(c.Remanence) != 2 || c.Remanence[0] != -1 || c.Remanence[1] != 1 {
		t.Errorf("expected remanence [-1 1], got %v", c.Remanence)
	}
	if c.Saturation != [2]float64{-1, 1} {
		t.Errorf("unexpected saturation %v", c.Saturation)
	}
	// trapezoid rule along the path
	want := 0.0
	for i := 1; i < len(h); i++ {
		want += 0.5 * (m[i] + m[i-1]) * (h[i] - h[i-1])
	}
	if math.Abs(c.Area-math.Abs(want)) > 1e-12 {
		t.Errorf("expected area %f, got %f", math.Abs(want), c.Area)
	}
}

func TestCharacterize_Errors(t *testing.T) {
	if _, err := Characterize([]float64{1}, []float64{1}); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
	if _, err := Characterize([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}

	c, err := Characterize([]float64{0, 1}, []float64{1, 2})
	if err != nil {
		t.Fatalf("Characterize failed: %v", err)
	}
	if !math.IsNaN(c.Coercivity) {
		t.Errorf("expected NaN coercivity without crossings, got %f", c.Coercivity)
	}
}

func TestCrossings_ExactZero(t *testing.T) {
	got := crossings([]float64{-1, 0, 0, 1}, []float64{10, 20, 30, 40})
	if len(got) != 1 || got[0] != 20 {
		t.Errorf("expected one crossing at 20, got %v", got)
	}
}

func newModel(t *testing.T) *model.Model {
	t.Helper()
	opts := model.DefaultOptions()
	opts.FixedDomain = &[2]float64{-1, 1}
	md, err := model.New(opts, nil, nil)
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	return md
}

func TestFirstOrderReversalCurves(t *testing.T) {
	md := newModel(t)
	forc, err := FirstOrderReversalCurves(md, 6)
	if err != nil {
		t.Fatalf("FirstOrderReversalCurves failed: %v", err)
	}
	if md.HasHistory() {
		t.Error("FORC must not modify the model")
	}
	if len(forc.Curves) != 6 {
		t.Fatalf("expected 6 curves, got %d", len(forc.Curves))
	}
	for i, c := range forc.Curves {
		if len(c.H) != 6-i || len(c.M) != len(c.H) {
			t.Errorf("curve %d: %d fields, %d values", i, len(c.H), len(c.M))
		}
		if c.H[0] != c.Reversal {
			t.Errorf("curve %d should start at its reversal field", i)
		}
		for j := 1; j < len(c.M); j++ {
			if c.M[j] < c.M[j-1]-1e-9 {
				t.Errorf("curve %d: ascending branch decreased at %d", i, j)
			}
		}
	}

	rho := forc.Distribution()
	if len(rho) != 5 || len(rho[0]) != 5 {
		t.Fatalf("expected 5x5 distribution, got %dx%d", len(rho), len(rho[0]))
	}
	if !math.IsNaN(rho[2][1]) {
		t.Error("entries with h <= hr should be NaN")
	}
	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			if math.IsNaN(rho[i][j]) || math.IsInf(rho[i][j], 0) {
				t.Errorf("rho[%d][%d] not finite", i, j)
			}
		}
	}

	if _, err := FirstOrderReversalCurves(md, 2); !errors.Is(err, preisach.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestHarmonics(t *testing.T) {
	const (
		samples = 256
		periods = 4
	)
	sine := make([]float64, samples)
	square := make([]float64, samples)
	for i := range sine {
		phase := 2 * math.Pi * periods * float64(i) / samples
		sine[i] = 0.8 * math.Sin(phase)
		square[i] = math.Copysign(1, math.Sin(phase+1e-3))
	}

	amps, err := Harmonics(sine, periods, 5)
	if err != nil {
		t.Fatalf("Harmonics failed: %v", err)
	}
	if math.Abs(amps[0]-0.8) > 1e-9 {
		t.Errorf("expected fundamental 0.8, got %f", amps[0])
	}
	for k := 1; k < len(amps); k++ {
		if amps[k] > 1e-9 {
			t.Errorf("pure sine has harmonic %d = %e", k+1, amps[k])
		}
	}
	if thd := TotalHarmonicDistortion(amps); thd > 1e-9 {
		t.Errorf("pure sine THD = %e", thd)
	}

	amps, err = Harmonics(square, periods, 5)
	if err != nil {
		t.Fatalf("Harmonics failed: %v", err)
	}
	if r := amps[2] / amps[0]; math.Abs(r-1.0/3) > 0.05 {
		t.Errorf("square wave third harmonic ratio %f, want about 1/3", r)
	}
	if amps[1] > 0.05*amps[0] {
		t.Errorf("square wave should have no even harmonics, got %f", amps[1])
	}
	if TotalHarmonicDistortion(amps) <= 0.3 {
		t.Errorf("square wave THD too small: %f", TotalHarmonicDistortion(amps))
	}

	if _, err := Harmonics(sine, periods, 40); !errors.Is(err, preisach.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration above Nyquist, got %v", err)
	}
	if !math.IsNaN(TotalHarmonicDistortion(nil)) {
		t.Error("expected NaN THD for empty amplitudes")
	}
}
