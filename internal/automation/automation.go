// Package automation runs scripted field sequences against a hysteresis
// model.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/preisach/internal/logging"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

// Scenario defines a scripted sequence of model operations
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single operation. Fields are given explicitly or
// generated from Sweep.
type ScenarioStep struct {
	Action string    `yaml:"action"`
	Fields []float64 `yaml:"fields,omitempty"`
	Sweep  *Sweep    `yaml:"sweep,omitempty"`
}

// Sweep describes a decaying sinusoidal field sequence, the usual way to
// cycle a magnet towards a reproducible state.
type Sweep struct {
	Center         float64 `yaml:"center"`
	Amplitude      float64 `yaml:"amplitude"`
	Cycles         int     `yaml:"cycles"`
	PointsPerCycle int     `yaml:"points_per_cycle"`
	// Decay is the fraction of amplitude lost per cycle, in [0, 1).
	Decay float64 `yaml:"decay"`
}

// Fields expands the sweep into explicit field values.
func (s Sweep) Fields() ([]float64, error) {
	if s.Cycles <= 0 || s.PointsPerCycle < 2 {
		return nil, fmt.Errorf("%w: sweep needs cycles > 0 and points_per_cycle >= 2", preisach.ErrConfiguration)
	}
	if s.Decay < 0 || s.Decay >= 1 {
		return nil, fmt.Errorf("%w: sweep decay %g not in [0, 1)", preisach.ErrConfiguration, s.Decay)
	}
	n := s.Cycles * s.PointsPerCycle
	out := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		phase := float64(i) / float64(s.PointsPerCycle)
		amp := s.Amplitude * math.Pow(1-s.Decay, phase)
		out[i] = s.Center + amp*math.Sin(2*math.Pi*phase)
	}
	return out, nil
}

// StepResult holds the physical magnetization produced by one step.
type StepResult struct {
	Index         int
	Action        string
	Fields        []float64
	Magnetization []float64
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", preisach.ErrConfiguration, scenario.Name)
	}
	return &scenario, nil
}

// RunScenario executes all steps in order. Results for completed steps are
// returned together with the first error.
func RunScenario(ctx context.Context, scenario *Scenario, md *model.Model, logger *slog.Logger) ([]StepResult, error) {
	logger = logging.OrDiscard(logger)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("running step", "step", i+1, "of", len(scenario.Steps), "action", step.Action)

		res, err := runStep(md, step)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		res.Index = i
		results = append(results, res)
	}
	return results, nil
}

func runStep(md *model.Model, step ScenarioStep) (StepResult, error) {
	res := StepResult{Action: step.Action}

	fields := step.Fields
	if step.Sweep != nil {
		swept, err := step.Sweep.Fields()
		if err != nil {
			return res, err
		}
		fields = append(append([]float64(nil), fields...), swept...)
	}
	res.Fields = fields

	needsFields := step.Action != "current" && step.Action != "reset"
	if needsFields && len(fields) == 0 {
		return res, fmt.Errorf("%w: action needs fields", preisach.ErrConfiguration)
	}

	var err error
	switch step.Action {
	case "apply":
		if err = md.ApplyField(fields...); err == nil {
			m := md.HistoryM()
			res.Magnetization = m[len(m)-len(fields):]
		}
	case "predict":
		res.Magnetization, err = md.Evaluate(model.Regression, fields, true)
	case "future":
		res.Magnetization, err = md.Evaluate(model.Future, fields, true)
	case "next":
		res.Magnetization, err = md.Evaluate(model.Next, fields, true)
	case "current":
		res.Magnetization, err = md.Evaluate(model.Current, nil, true)
	case "reset":
		md.ResetHistory()
	default:
		err = fmt.Errorf("%w: unknown action %q", preisach.ErrConfiguration, step.Action)
	}
	return res, err
}
