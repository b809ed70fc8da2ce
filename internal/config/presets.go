package config

import "sort"

// Presets are model sections tuned for common use. Fit, planner and log
// settings stay at their defaults.
var Presets = map[string]ModelConfig{
	"default": {
		MeshScale: 1.0, MeshDensity: "default", PolynomialDegree: 1, PolynomialFitIterations: 3000,
		Temperature: 1e-2, NormalizedDensity: true, Trainable: true,
	},
	"fine": {
		MeshScale: 0.5, MeshDensity: "default", PolynomialDegree: 1, PolynomialFitIterations: 3000,
		Temperature: 5e-3, NormalizedDensity: true, Trainable: true,
	},
	"coarse": {
		MeshScale: 2.0, MeshDensity: "uniform", PolynomialDegree: 1, PolynomialFitIterations: 1000,
		Temperature: 2e-2, NormalizedDensity: true, Trainable: true,
	},
	"sharp": {
		MeshScale: 1.0, MeshDensity: "diagonal", PolynomialDegree: 1, PolynomialFitIterations: 3000,
		Temperature: 1e-4, NormalizedDensity: true, Trainable: true,
	},
	"frozen": {
		MeshScale: 1.0, MeshDensity: "default", PolynomialDegree: 1, PolynomialFitIterations: 3000,
		Temperature: 1e-2, NormalizedDensity: true, FixedDomain: []float64{-1, 1}, FixedScaling: true, Trainable: true,
	},
}

// GetPreset returns a full config using the named model preset, or nil.
func GetPreset(name string) *Config {
	m, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Model = m
	if m.FixedDomain != nil {
		cfg.Model.FixedDomain = append([]float64(nil), m.FixedDomain...)
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
