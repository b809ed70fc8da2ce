package experiment

import (
	"fmt"

	"github.com/san-kum/preisach/internal/config"
	"github.com/san-kum/preisach/internal/mesh"
)

// PresetTrials builds one trial per named config preset.
func PresetTrials(names []string) ([]Trial, error) {
	trials := make([]Trial, 0, len(names))
	for _, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", name)
		}
		trials = append(trials, Trial{Name: name, Model: cfg.Model})
	}
	return trials, nil
}

// TemperatureTrials varies only the relay temperature.
func TemperatureTrials(base config.ModelConfig, temps []float64) []Trial {
	trials := make([]Trial, len(temps))
	for i, t := range temps {
		mc := base
		mc.Temperature = t
		trials[i] = Trial{Name: fmt.Sprintf("T=%g", t), Model: mc}
	}
	return trials
}

// DensityTrials varies only the mesh density function.
func DensityTrials(base config.ModelConfig) []Trial {
	names := mesh.Names()
	trials := make([]Trial, 0, len(names))
	for _, name := range names {
		mc := base
		mc.MeshDensity = name
		trials = append(trials, Trial{Name: "mesh=" + name, Model: mc})
	}
	return trials
}
