package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/preisach/internal/fit"
	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/mesh"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/optim"
	"github.com/san-kum/preisach/internal/preisach"
)

const (
	DefaultMeshScale        = 1.0
	DefaultPolynomialDegree = 1
	DefaultFitIterations    = 3000
	DefaultTemperature      = 1e-2
	DefaultMaxIterations    = 500
	DefaultGridPoints       = 101
	DefaultRefineIterations = 50
	DefaultDataDir          = "data"
)

type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Fit     FitConfig     `yaml:"fit"`
	Planner PlannerConfig `yaml:"planner"`
	Log     LogConfig     `yaml:"log"`
	DataDir string        `yaml:"data_dir"`
}

type ModelConfig struct {
	MeshScale               float64   `yaml:"mesh_scale" json:"mesh_scale"`
	MeshDensity             string    `yaml:"mesh_density" json:"mesh_density"`
	PolynomialDegree        int       `yaml:"polynomial_degree" json:"polynomial_degree"`
	PolynomialFitIterations int       `yaml:"polynomial_fit_iterations" json:"polynomial_fit_iterations"`
	Temperature             float64   `yaml:"temperature" json:"temperature"`
	NormalizedDensity       bool      `yaml:"normalized_density" json:"normalized_density"`
	FixedDomain             []float64 `yaml:"fixed_domain,omitempty" json:"fixed_domain,omitempty"`
	FixedScaling            bool      `yaml:"fixed_scaling" json:"fixed_scaling"`
	Trainable               bool      `yaml:"trainable" json:"trainable"`
}

type FitConfig struct {
	MaxIterations     int     `yaml:"max_iterations"`
	GradientThreshold float64 `yaml:"gradient_threshold"`
}

type PlannerConfig struct {
	GridPoints       int `yaml:"grid_points"`
	RefineIterations int `yaml:"refine_iterations"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			MeshScale:               DefaultMeshScale,
			MeshDensity:             "default",
			PolynomialDegree:        DefaultPolynomialDegree,
			PolynomialFitIterations: DefaultFitIterations,
			Temperature:             DefaultTemperature,
			NormalizedDensity:       true,
			Trainable:               true,
		},
		Fit: FitConfig{
			MaxIterations:     DefaultMaxIterations,
			GradientThreshold: 1e-8,
		},
		Planner: PlannerConfig{
			GridPoints:       DefaultGridPoints,
			RefineIterations: DefaultRefineIterations,
		},
		Log:     LogConfig{Level: "info"},
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise only fail deep inside model
// construction.
func (c *Config) Validate() error {
	m := c.Model
	if m.MeshScale <= 0 {
		return fmt.Errorf("%w: mesh_scale must be positive, got %g", preisach.ErrConfiguration, m.MeshScale)
	}
	if _, err := mesh.DensityByName(m.MeshDensity); err != nil {
		return fmt.Errorf("%w: %v", preisach.ErrConfiguration, err)
	}
	if m.PolynomialDegree < 0 {
		return fmt.Errorf("%w: polynomial_degree must be >= 0", preisach.ErrConfiguration)
	}
	if m.Temperature < 0 {
		return fmt.Errorf("%w: temperature must be >= 0, got %g", preisach.ErrConfiguration, m.Temperature)
	}
	if m.FixedDomain != nil {
		if len(m.FixedDomain) != 2 || m.FixedDomain[0] >= m.FixedDomain[1] {
			return fmt.Errorf("%w: fixed_domain must be [min, max] with min < max", preisach.ErrConfiguration)
		}
	}
	if c.Fit.MaxIterations <= 0 {
		return fmt.Errorf("%w: fit.max_iterations must be positive", preisach.ErrConfiguration)
	}
	if c.Planner.GridPoints < 2 {
		return fmt.Errorf("%w: planner.grid_points must be >= 2", preisach.ErrConfiguration)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", preisach.ErrConfiguration, err)
	}
	return nil
}

// ModelOptions converts the model section into model.Options.
func (c *Config) ModelOptions(logger *slog.Logger) (model.Options, error) {
	density, err := mesh.DensityByName(c.Model.MeshDensity)
	if err != nil {
		return model.Options{}, fmt.Errorf("%w: %v", preisach.ErrConfiguration, err)
	}
	opts := model.DefaultOptions()
	opts.MeshScale = c.Model.MeshScale
	opts.MeshDensity = density
	opts.PolynomialDegree = c.Model.PolynomialDegree
	opts.PolynomialFitIterations = c.Model.PolynomialFitIterations
	opts.Temperature = c.Model.Temperature
	opts.UseNormalizedDensity = c.Model.NormalizedDensity
	opts.FixedScaling = c.Model.FixedScaling
	opts.Trainable = c.Model.Trainable
	opts.Logger = logger
	if len(c.Model.FixedDomain) == 2 {
		opts.FixedDomain = &[2]float64{c.Model.FixedDomain[0], c.Model.FixedDomain[1]}
	}
	return opts, nil
}

func (c *Config) FitConfig(logger *slog.Logger) fit.Config {
	return fit.Config{
		MaxIterations:     c.Fit.MaxIterations,
		GradientThreshold: c.Fit.GradientThreshold,
		Logger:            logger,
	}
}

func (c *Config) PlannerConfig(logger *slog.Logger) optim.Config {
	return optim.Config{
		GridPoints:       c.Planner.GridPoints,
		RefineIterations: c.Planner.RefineIterations,
		Logger:           logger,
	}
}

// Logger builds the structured logger described by the log section.
func (c *Config) Logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{Level: level, JSON: c.Log.JSON, Writer: os.Stderr}), nil
}
