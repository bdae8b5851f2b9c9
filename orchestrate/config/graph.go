package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSteps bounds a run when no other ceiling is configured. Cyclic
// graphs that legitimately need more steps must raise it.
const DefaultMaxSteps = 25

// GraphConfig defines configuration for state graph execution.
//
// Observer is a string so configuration files can name an observer that is
// resolved at runtime through the observability registry.
//
// Example YAML:
//
//	name: loan
//	observer: slog
//	max_steps: 50
type GraphConfig struct {
	// Name identifies the graph in events and metrics
	Name string `json:"name" yaml:"name"`

	// Observer names a registered observer ("noop", "slog", ...)
	Observer string `json:"observer" yaml:"observer"`

	// MaxSteps caps the number of node executions in a single run
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

// DefaultGraphConfig returns sensible defaults for graph execution.
//
// Default values:
//   - Observer: "slog" for structured logging
//   - MaxSteps: DefaultMaxSteps
func DefaultGraphConfig(name string) GraphConfig {
	return GraphConfig{
		Name:     name,
		Observer: "slog",
		MaxSteps: DefaultMaxSteps,
	}
}

// Merge applies non-zero values from source into c.
func (c *GraphConfig) Merge(source *GraphConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxSteps > 0 {
		c.MaxSteps = source.MaxSteps
	}
}

// LoadGraphConfig reads a YAML or JSON config file, merges it over
// DefaultGraphConfig(name), and returns the result. The format is chosen by
// file extension; anything other than .json is decoded as YAML.
func LoadGraphConfig(filename, name string) (*GraphConfig, error) {
	cfg := DefaultGraphConfig(name)

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded GraphConfig
	if strings.ToLower(filepath.Ext(filename)) == ".json" {
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
