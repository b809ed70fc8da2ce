package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/preisach/internal/config"
	"github.com/san-kum/preisach/internal/model"
)

var ErrNoTrainingData = errors.New("run has no training data")

// MetadataFor fills the model fields of a run record. Kind, source, loss
// and metrics are left to the caller.
func MetadataFor(md *model.Model, cfg config.ModelConfig) RunMetadata {
	return RunMetadata{
		Model:      cfg,
		MeshPoints: md.NMeshPoints(),
		Domain:     md.ValidDomain(),
		Params: map[string]float64{
			"offset": md.Offset(),
			"scale":  md.Scale(),
			"slope":  md.Slope(),
		},
		Density: md.Density(),
	}
}

// LoadModel rebuilds the model of a fit run from its configuration and
// training curve and restores the fitted parameters. The returned model
// holds the training history.
func (s *Store) LoadModel(runID string, logger *slog.Logger) (*model.Model, *RunMetadata, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	curve, err := s.LoadCurve(runID)
	if err != nil {
		return nil, nil, err
	}
	if curve.Measured == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoTrainingData, runID)
	}

	cfg := config.DefaultConfig()
	cfg.Model = meta.Model
	opts, err := cfg.ModelOptions(logger)
	if err != nil {
		return nil, nil, err
	}
	md, err := model.New(opts, curve.H, curve.Measured)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild model: %w", err)
	}
	if len(meta.Density) != md.NMeshPoints() {
		return nil, nil, fmt.Errorf("run %s: %d density values for %d mesh points", runID, len(meta.Density), md.NMeshPoints())
	}

	if err := md.SetDensity(meta.Density); err != nil {
		return nil, nil, err
	}
	setters := map[string]func(float64) error{
		"offset": md.SetOffset,
		"scale":  md.SetScale,
		"slope":  md.SetSlope,
	}
	for name, set := range setters {
		if v, ok := meta.Params[name]; ok {
			if err := set(v); err != nil {
				return nil, nil, fmt.Errorf("restore %s: %w", name, err)
			}
		}
	}
	return md, meta, nil
}
