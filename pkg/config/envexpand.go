package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references in raw YAML
// text, expanded before parsing — the same textual pre-pass the teacher
// uses so secrets never need to be hardcoded in checked-in config.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// expandEnv replaces ${VAR} / ${VAR:-default} references in raw with
// process environment values.
func expandEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		name := string(groups[1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		if len(groups[2]) > 2 {
			return groups[2][2:] // strip ":-"
		}
		return []byte{}
	})
}
