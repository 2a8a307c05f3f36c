package app

import "errors"

// Config holds everything an App instance needs to run. CLI flags populate
// it directly; values left empty fall back to the config file and then to
// defaults when the app starts.
type Config struct {
	ConfigPath  string // hcl host config file, optional
	ModulesPath string // directory of .lua handler modules

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config. At least one source for the modules
// directory must be present.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModulesPath == "" && cfg.ConfigPath == "" {
		return nil, errors.New("a modules path or a config file is required")
	}

	return &cfg, nil
}
