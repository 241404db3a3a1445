// Package config loads the declarative YAML run configuration for the
// gap-filling pipeline.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go.ngs.io/currents-api/internal/usecase"
)

// Engine configures the external smoothing subprocess.
type Engine struct {
	// Command is the argv of the engine process, e.g.
	// ["python3", "tools/smoothn_engine.py"].
	Command []string `yaml:"command"`
}

// Config is one pipeline run: where the target dataset comes from, where the
// filled dataset goes, and the ordered step records to apply.
type Config struct {
	Input  string               `yaml:"input"`
	Output string               `yaml:"output"`
	Engine Engine               `yaml:"engine"`
	Steps  []usecase.StepConfig `yaml:"steps"`
}

// Load reads and validates a YAML run configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural constraints that do not need the step
// registry: every step record is named, and a smoothing step has an engine
// command to run.
func (c *Config) Validate() error {
	needsEngine := false
	for i, step := range c.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if step.Name == "smoothing" {
			needsEngine = true
		}
	}
	if needsEngine && len(c.Engine.Command) == 0 {
		return fmt.Errorf("smoothing step configured without an engine command")
	}
	return nil
}
