// Package config loads the tool's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked for when none is given.
const DefaultPath = ".ddiv-prove.yaml"

// Config names the external tools and where their files go.
type Config struct {
	// Prover is the Gappa binary.
	Prover string `yaml:"prover"`
	// ProverArgs are passed to every prover run before mode-specific
	// arguments.
	ProverArgs []string `yaml:"prover_args,omitempty"`
	// Checker is the Coq compiler.
	Checker     string   `yaml:"checker"`
	CheckerArgs []string `yaml:"checker_args,omitempty"`
	// OutputDir keeps generated files after the run. Empty means a
	// temporary directory removed on exit.
	OutputDir string `yaml:"output_dir,omitempty"`
	Jobs      int    `yaml:"jobs"`
	// CacheMaxAge expires reused cells older than this. Zero keeps them
	// until their files change.
	CacheMaxAge time.Duration `yaml:"cache_max_age,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Prover:  "gappa",
		Checker: "coqc",
		Jobs:    1,
	}
}

// Load reads the file at path over the defaults. A missing file at
// DefaultPath yields the defaults; a missing file anywhere else is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the tool names are set, jobs is positive and the
// cache age is not negative.
func (c Config) Validate() error {
	if c.Prover == "" {
		return errors.New("prover must not be empty")
	}
	if c.Checker == "" {
		return errors.New("checker must not be empty")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must not be negative, got %s", c.CacheMaxAge)
	}
	return nil
}

// WriteDefault writes the default configuration to path, replacing any
// existing file.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultPath
	}

	d, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, d, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
