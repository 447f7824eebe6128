// Package config loads scaffold settings from defaults, an optional YAML
// file and SCAFFOLD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/scaffold/internal/hints"
	"github.com/abhisek/scaffold/internal/llm"
	"github.com/abhisek/scaffold/internal/logging"
)

// Config holds the complete scaffold configuration.
type Config struct {
	Store   StoreConfig    `koanf:"store"`
	Run     RunConfig      `koanf:"run"`
	Log     logging.Config `koanf:"log"`
	Metrics MetricsConfig  `koanf:"metrics"`
	LLM     llm.Config     `koanf:"llm"`
	Hints   hints.Config   `koanf:"hints"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	// Path is the database file. Empty resolves to the default data dir.
	Path string `koanf:"path"`
}

// RunConfig bounds and checkpoints orchestrator runs.
type RunConfig struct {
	MaxTicks      int `koanf:"max_ticks"`
	SnapshotEvery int `koanf:"snapshot_every"` // 0 disables periodic snapshots
	SnapshotKeep  int `koanf:"snapshot_keep"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9464". Empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Run: RunConfig{
			MaxTicks:      100,
			SnapshotEvery: 10,
			SnapshotKeep:  5,
		},
		Log:   logging.DefaultConfig(),
		LLM:   llm.DefaultConfig(),
		Hints: hints.DefaultConfig(),
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if c.Run.MaxTicks < 1 {
		errs = append(errs, fmt.Errorf("run.max_ticks must be at least 1, got %d", c.Run.MaxTicks))
	}
	if c.Run.SnapshotEvery < 0 {
		errs = append(errs, fmt.Errorf("run.snapshot_every must not be negative, got %d", c.Run.SnapshotEvery))
	}
	if c.Run.SnapshotKeep < 1 {
		errs = append(errs, fmt.Errorf("run.snapshot_keep must be at least 1, got %d", c.Run.SnapshotKeep))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Hints.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("hints.max_tokens must be at least 1, got %d", c.Hints.MaxTokens))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/scaffold/config.yaml, falling back
// to ~/.config/scaffold/config.yaml.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "scaffold", "config.yaml"), nil
}
