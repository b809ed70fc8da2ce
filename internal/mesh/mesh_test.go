package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/preisach/internal/preisach"
)

func contains(m preisach.Mesh, alpha, beta float64) bool {
	for _, p := range m {
		if math.Abs(p.Alpha-alpha) < 1e-12 && math.Abs(p.Beta-beta) < 1e-12 {
			return true
		}
	}
	return false
}

func TestGenerate_Default(t *testing.T) {
	m, err := Generate(1.0, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("generated mesh invalid: %v", err)
	}
	if len(m) != 111 {
		t.Errorf("expected 111 points at unit scale, got %d", len(m))
	}

	for _, corner := range []preisach.Point{{Alpha: 0, Beta: 0}, {Alpha: 1, Beta: 1}, {Alpha: 1, Beta: 0}} {
		if !contains(m, corner.Alpha, corner.Beta) {
			t.Errorf("mesh missing corner (%g, %g)", corner.Alpha, corner.Beta)
		}
	}

	for i, p := range m {
		if p.Alpha < 0 || p.Alpha > 1 || p.Beta < 0 || p.Beta > 1 {
			t.Errorf("point %d (%g, %g) outside the unit plane", i, p.Alpha, p.Beta)
		}
	}
}

func TestGenerate_NoDuplicates(t *testing.T) {
	for _, name := range Names() {
		density, err := DensityByName(name)
		if err != nil {
			t.Fatalf("DensityByName(%s) failed: %v", name, err)
		}
		m, err := Generate(1.0, density)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", name, err)
		}
		seen := make(map[preisach.Point]bool, len(m))
		for _, p := range m {
			if seen[p] {
				t.Errorf("%s: duplicate point (%g, %g)", name, p.Alpha, p.Beta)
			}
			seen[p] = true
		}
	}
}

func TestGenerate_ScaleControlsResolution(t *testing.T) {
	scales := []float64{2.0, 1.0, 0.5}
	prev := 0
	for _, scale := range scales {
		m, err := Generate(scale, nil)
		if err != nil {
			t.Fatalf("Generate(%g) failed: %v", scale, err)
		}
		if len(m) <= prev {
			t.Errorf("scale %g: %d points, expected more than %d", scale, len(m), prev)
		}
		prev = len(m)
	}
}

func TestGenerate_DiagonalIsFiner(t *testing.T) {
	nearDiagonal := func(m preisach.Mesh) int {
		n := 0
		for _, p := range m {
			if p.Alpha-p.Beta < 0.1 {
				n++
			}
		}
		return n
	}

	uniform, err := Generate(1.0, Uniform)
	if err != nil {
		t.Fatalf("Generate uniform failed: %v", err)
	}
	diagonal, err := Generate(1.0, Diagonal)
	if err != nil {
		t.Fatalf("Generate diagonal failed: %v", err)
	}
	if nearDiagonal(diagonal) <= nearDiagonal(uniform) {
		t.Errorf("diagonal density should place more points near alpha = beta: %d vs %d",
			nearDiagonal(diagonal), nearDiagonal(uniform))
	}
}

func TestGenerate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		scale   float64
		density DensityFunc
	}{
		{"zero scale", 0, nil},
		{"negative scale", -1, nil},
		{"nan scale", math.NaN(), nil},
		{"zero density", 1, func(a, b float64) float64 { return 0 }},
		{"nan density", 1, func(a, b float64) float64 { return math.NaN() }},
		{"too fine", 1e-6, Uniform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.scale, tt.density)
			if !errors.Is(err, preisach.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestDensityByName(t *testing.T) {
	if _, err := DensityByName("nonexistent"); err == nil {
		t.Error("expected error for unknown density")
	}
	fn, err := DensityByName("")
	if err != nil {
		t.Fatalf("empty name failed: %v", err)
	}
	if fn(0.5, 0.5) != Default(0.5, 0.5) {
		t.Error("empty name should select the default density")
	}

	names := Names()
	if len(names) != 3 {
		t.Fatalf("expected 3 densities, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}
