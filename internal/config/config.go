// Package config loads the per-project agent configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultMaxRounds caps how many LLM round-trips a single user request
// may take before the agent gives up.
const DefaultMaxRounds = 50

// Config holds the settings read from .nu-agent/config.yaml.
type Config struct {
	// Model overrides the default Anthropic model when non-empty.
	Model string `yaml:"model"`
	// MaxRounds caps LLM round-trips per user request. Zero means
	// the default.
	MaxRounds int `yaml:"max_rounds"`
}

// Path returns the config file location for a work dir.
func Path(workDir string) string {
	return filepath.Join(workDir, ".nu-agent", "config.yaml")
}

// Load reads the config file from the work dir. A missing file yields
// the defaults.
func Load(workDir string) (Config, error) {
	cfg := Config{MaxRounds: DefaultMaxRounds}

	data, err := os.ReadFile(Path(workDir))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	return cfg, nil
}
