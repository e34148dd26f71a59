package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the tunable knobs of a pass. Everything has a
// compiled-in default; a YAML file given with --config overrides
// field by field.
type Config struct {
	// Ignore lists file base names discovery skips everywhere under
	// the root.
	Ignore []string `yaml:"ignore"`

	// Algorithm identifies the digest algorithm. Only "sha1" is
	// supported; the field exists so a catalog built by a future
	// algorithm fails loudly instead of silently re-hashing.
	Algorithm string `yaml:"algorithm"`

	// ProgressEvery is the number of files between progress log lines.
	ProgressEvery int64 `yaml:"progress_every"`

	// Workers is the hash worker count for the build pass.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		Ignore:        []string{".DS_Store", "Thumbs.db", ".git"},
		Algorithm:     "sha1",
		ProgressEvery: 1000,
		Workers:       4,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Algorithm != "sha1" {
		return fmt.Errorf("unsupported digest algorithm %q", c.Algorithm)
	}
	if c.ProgressEvery < 1 {
		return fmt.Errorf("progress_every must be positive, got %d", c.ProgressEvery)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}
