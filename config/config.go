// Package config loads the wetwire-lsp.yaml configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-lsp-go/lint"
)

// Filename is the standard name for configuration files
const Filename = "wetwire-lsp.yaml"

// Sync modes
const (
	SyncIncremental = "incremental"
	SyncFull        = "full"
)

// Config represents the language server configuration
type Config struct {
	Name   string       `yaml:"name,omitempty"`
	Listen string       `yaml:"listen,omitempty"`
	Sync   string       `yaml:"sync,omitempty"`
	Log    LogConfig    `yaml:"log"`
	Lint   LintConfig   `yaml:"lint"`
	Assist AssistConfig `yaml:"assist"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// LintConfig represents linting-related configuration
type LintConfig struct {
	DisabledRules []string `yaml:"disabled_rules,omitempty"`
	MinSeverity   string   `yaml:"min_severity,omitempty"`
	MaxLineLength int      `yaml:"max_line_length,omitempty"`
	// Extensions limits the check command to these file extensions.
	Extensions []string `yaml:"extensions,omitempty"`
}

// AssistConfig enables the Anthropic hover provider
type AssistConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	return &Config{
		Name: "wetwire-lsp",
		Sync: SyncIncremental,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Lint: LintConfig{
			MinSeverity:   "info",
			MaxLineLength: lint.DefaultMaxLineLength,
		},
	}
}

// Validate checks field values that YAML typing cannot.
func (c *Config) Validate() error {
	var errs []error
	switch c.Sync {
	case "", SyncIncremental, SyncFull:
	default:
		errs = append(errs, fmt.Errorf("sync: unknown mode %q (want %q or %q)", c.Sync, SyncIncremental, SyncFull))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if _, err := lint.ParseSeverity(c.Lint.MinSeverity); err != nil {
		errs = append(errs, fmt.Errorf("lint.min_severity: %w", err))
	}
	known := lint.DefaultRegistry(c.Lint.MaxLineLength)
	for _, id := range c.Lint.DisabledRules {
		if known.Get(id) == nil {
			errs = append(errs, fmt.Errorf("lint.disabled_rules: unknown rule %q", id))
		}
	}
	if c.Lint.MaxLineLength < 0 {
		errs = append(errs, fmt.Errorf("lint.max_line_length: must not be negative"))
	}
	if c.Assist.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("assist.max_tokens: must not be negative"))
	}
	return errors.Join(errs...)
}

// LintOptions converts the lint section for the lint engine.
func (c *Config) LintOptions() (*lint.Config, error) {
	severity, err := lint.ParseSeverity(c.Lint.MinSeverity)
	if err != nil {
		return nil, err
	}
	return &lint.Config{
		DisabledRules: c.Lint.DisabledRules,
		MinSeverity:   severity,
	}, nil
}

// Load loads from current directory, walking up to find wetwire-lsp.yaml
func Load() (*Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom loads starting from specified directory, walking up the tree.
// When no file is found the defaults are returned with an empty path.
func LoadFrom(startDir string) (*Config, string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	currentDir := absDir
	for {
		configPath := filepath.Join(currentDir, Filename)

		if _, err := os.Stat(configPath); err == nil {
			config, err := LoadFile(configPath)
			if err != nil {
				return nil, "", err
			}
			return config, configPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return Defaults(), "", nil
		}
		currentDir = parentDir
	}
}

// LoadFile loads from specific path. Values missing from the file keep
// their defaults; unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Save writes config to path, creating parent directories.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
