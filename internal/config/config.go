// Package config loads the YAML job profile. One profile describes one
// conversion job end to end: scheduler resources, runtime environment,
// the external command, and where its output goes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ashiklom/veda-data-processing/internal/batch"
)

// Config is the full job profile.
type Config struct {
	Resources   batch.ResourceRequest `yaml:"resources"`
	Environment Environment           `yaml:"environment"`
	Command     []string              `yaml:"command"`
	Log         Log                   `yaml:"log"`
	Preflight   Preflight             `yaml:"preflight"`
	History     History               `yaml:"history"`
}

// Environment names the runtime profile to activate before the command.
type Environment struct {
	Modules  []string          `yaml:"modules"`
	CondaEnv string            `yaml:"conda_env"`
	Shell    string            `yaml:"shell"`
	Extra    map[string]string `yaml:"extra"`
}

// Log configures the launcher's own diagnostics and the command's log
// artifact. Artifact is distinct from resources.output: the scheduler log
// captures the wrapper's status line, the artifact captures the command.
type Log struct {
	Artifact string `yaml:"artifact"`
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
}

// Preflight configures the pre-submission S3 checks.
type Preflight struct {
	Enabled     bool   `yaml:"enabled"`
	Region      string `yaml:"region"`
	Bucket      string `yaml:"bucket"`
	InputPrefix string `yaml:"input_prefix"`
}

// History configures the local run-history database.
type History struct {
	Path string `yaml:"path"`
}

// Default returns the profile defaults applied before YAML decoding.
func Default() Config {
	return Config{
		Log: Log{
			Artifact: "lisjob-convert.log",
			Level:    "info",
			Format:   "text",
		},
		Preflight: Preflight{
			Region: "us-west-2",
		},
		History: History{
			Path: defaultHistoryPath(),
		},
	}
}

// Load reads and validates a profile from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks only what the wrapper itself consumes. Resource
// directives are deliberately not validated here: malformed directives
// fail inside sbatch, at submission time.
func (c *Config) Validate() error {
	if len(c.Command) == 0 {
		return fmt.Errorf("command must not be empty")
	}
	if c.Log.Artifact == "" {
		return fmt.Errorf("log.artifact must be set")
	}
	if c.Preflight.Enabled && c.Preflight.Bucket == "" {
		return fmt.Errorf("preflight.bucket must be set when preflight is enabled")
	}
	return nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lisjob-history.db"
	}
	return filepath.Join(home, ".lisjob", "history.db")
}
