// Package config loads the YAML configuration file that supplies
// defaults for worker counts, skip directories, extensions, and the
// similarity threshold (§2.1, §6). An absent file is not an error: the
// built-in defaults apply and the CLI flags layer on top.
package config

import (
	"os"

	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the YAML configuration file.
type Config struct {
	MaxWorkers          int      `yaml:"max_workers"`
	SkipDirs            []string `yaml:"skip_dirs"`
	Extensions          []string `yaml:"extensions"`
	SimilarityThreshold int      `yaml:"similarity_threshold"`
}

// Default returns the built-in configuration matching the constants
// documented in §4.1/§4.4.
func Default() Config {
	return Config{
		MaxWorkers:          omnidupe.DefaultMaxWorkers,
		SkipDirs:            append([]string(nil), omnidupe.DefaultSkipDirs...),
		Extensions:          append([]string(nil), omnidupe.DefaultExtensions...),
		SimilarityThreshold: omnidupe.DefaultSimilarityThreshold,
	}
}

// Load reads path and merges it over Default(). A missing file returns
// Default() unmodified; any other read or parse error is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, err
	}

	if override.MaxWorkers > 0 {
		cfg.MaxWorkers = override.MaxWorkers
	}
	if len(override.SkipDirs) > 0 {
		cfg.SkipDirs = override.SkipDirs
	}
	if len(override.Extensions) > 0 {
		cfg.Extensions = override.Extensions
	}
	if override.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = override.SimilarityThreshold
	}

	return cfg, nil
}
