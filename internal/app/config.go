package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ModulesPath is the directory scanned for module archives: metadata
	// files, descriptor manifests, and marker files.
	ModulesPath string
	// Env is the weaving environment re-selection targets.
	Env string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModulesPath == "" {
		return nil, errors.New("ModulesPath is a required configuration field and cannot be empty")
	}
	if cfg.Env == "" {
		cfg.Env = "default"
	}
	return &cfg, nil
}
