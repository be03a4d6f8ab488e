package config

import "dario.cat/mergo"

// mergeOverride merges a user-supplied override on top of base, with
// override values taking precedence for any field it sets. Mirrors the
// teacher's use of mergo to layer built-in defaults under user YAML.
func mergeOverride(base *Config, override *Config) (*Config, error) {
	merged := *base
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}
