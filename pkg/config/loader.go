package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileName is the single YAML file a config directory may contain.
// Unlike the teacher (which splits agents/chains/mcp-servers/llm-providers
// across several files) this core has one flat settings surface, so one
// file is enough; Load still accepts a directory for parity with
// the teacher's --config-dir flag and to leave room for future splits.
const configFileName = "reasoner.yaml"

// Load reads reasoner.yaml from configDir (if present), expands
// environment variables, merges it over the built-in defaults, validates
// the result, and returns a ready-to-use Config.
//
// A missing config file is not an error: the built-in defaults are used
// as-is, the same way the teacher tolerates a missing .env file.
func Load(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading configuration")

	defaults := Defaults()
	defaults.configDir = configDir

	path := filepath.Join(configDir, configFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("no reasoner.yaml found, using built-in defaults", "path", path)
			if verr := Validate(defaults); verr != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", verr)
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	expanded := expandEnv(raw)

	var override Config
	if err := yaml.Unmarshal(expanded, &override); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	merged, err := mergeOverride(defaults, &override)
	if err != nil {
		return nil, fmt.Errorf("merging configuration: %w", err)
	}
	merged.configDir = configDir

	if err := Validate(merged); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	_ = ctx
	log.Info("configuration loaded")
	return merged, nil
}
