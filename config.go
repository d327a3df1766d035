package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-scripts/research/pkg/common"
)

// apiKeyEnv names the environment variable holding the analysis API key
const apiKeyEnv = "NICHE_ANALYSIS_API_KEY"

// loadConfig reads the YAML file at path over the defaults. A missing file
// leaves the defaults untouched.
func loadConfig(path string) (common.Configuration, error) {
	cfg := common.DefaultConfiguration()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// apply overrides cfg with the flags that were set on the command line
func (g *Globals) apply(cfg *common.Configuration) {
	if g.OutputDir != "" {
		cfg.OutputDir = g.OutputDir
	}
	if g.Headless {
		cfg.Browser.Headless = true
	}
	if g.Debug {
		cfg.Debug = true
	}
	if g.MetricsPort > 0 {
		cfg.MetricsPort = g.MetricsPort
	}
	if g.RemoteURL != "" {
		cfg.Browser.RemoteURL = g.RemoteURL
	}
	if key := os.Getenv(apiKeyEnv); key != "" {
		cfg.Analysis.APIKey = key
	}
}
