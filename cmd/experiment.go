package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// An Experiment describes a batch of replicated runs of one scenario.
type Experiment struct {
	Name         string             `yaml:"name"`
	Scenario     string             `yaml:"scenario"`
	Replications int                `yaml:"replications"`
	Seed         int64              `yaml:"seed"`
	MaxTime      float64            `yaml:"max_time"`
	MaxEvents    uint64             `yaml:"max_events"`
	Parallelism  int                `yaml:"parallelism"`
	Output       string             `yaml:"output"`
	Params       map[string]float64 `yaml:"params"`
}

// LoadExperiment reads and validates an experiment file.
func LoadExperiment(path string) (Experiment, error) {
	exp := Experiment{
		Replications: 1,
		Parallelism:  1,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return exp, err
	}

	if err := yaml.Unmarshal(data, &exp); err != nil {
		return exp, fmt.Errorf("parsing %s: %w", path, err)
	}

	if exp.Scenario == "" {
		return exp, fmt.Errorf("%s: scenario is required", path)
	}

	if exp.Replications < 1 {
		return exp, fmt.Errorf("%s: replications must be at least 1", path)
	}

	if exp.Name == "" {
		exp.Name = exp.Scenario
	}

	return exp, nil
}

// Param returns a scenario parameter, falling back to a default.
func (e Experiment) Param(name string, fallback float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}

	return fallback
}
