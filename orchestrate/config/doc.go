// Package config provides configuration structures for state graph execution.
//
// Configuration only exists during initialization: a GraphConfig is resolved
// into an engine (observer lookup, step ceiling) and is not consulted again
// while graphs run.
//
// # Default Configuration
//
//	cfg := config.DefaultGraphConfig("loan")
//	// Name: "loan"
//	// Observer: "slog"
//	// MaxSteps: 25
//
// # Configuration Merging
//
// Loaded configuration merges over defaults:
//
//	cfg := config.DefaultGraphConfig("workflow")
//	var loaded config.GraphConfig
//	yaml.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil (BatchConfig.FailFastNil)
//
// # Batch Configuration
//
// BatchConfig sizes the worker pool that runs many initial states through one
// compiled graph. FailFast defaults to true when unset.
//
// LoadGraphConfig performs the read, decode and merge in one call and accepts
// YAML (.yaml, .yml) or JSON (.json) files.
package config
