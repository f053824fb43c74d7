// Package config loads optional kalc configuration from a YAML file.
//
// Configuration covers the REPL (prompt, history file) and extra binary
// operators, which are merged over the default precedence table and
// injected into each parser instance.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/parser"
)

// Config is the top-level configuration.
type Config struct {
	REPL      REPLConfig `yaml:"repl"`
	Operators []Operator `yaml:"operators"`
}

// REPLConfig holds interactive-session settings.
type REPLConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
}

// Operator adds or overrides one binary operator in the precedence table.
type Operator struct {
	Char       string `yaml:"char"`
	Precedence int    `yaml:"precedence"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		REPL: REPLConfig{
			Prompt:      "ready> ",
			HistoryFile: filepath.Join(os.TempDir(), ".kalc_history"),
		},
	}
}

// Load reads configuration from path, or from the default locations
// (./kalc.yaml, then ~/.config/kalc/kalc.yaml) when path is empty. A
// missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = findConfig()
		if path == "" {
			return Defaults(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return Defaults(), nil
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// findConfig returns the first default config path that exists.
func findConfig() string {
	candidates := []string{"kalc.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "kalc", "kalc.yaml"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) validate() error {
	for _, op := range c.Operators {
		if len(op.Char) != 1 {
			return fmt.Errorf("operator %q must be a single character", op.Char)
		}
		ch := op.Char[0]
		if isAlphanumeric(ch) || ch == '(' || ch == ')' || ch == ',' || ch == ';' ||
			ch == '#' || ch == '.' || ch <= ' ' || ch >= 0x7f {
			return fmt.Errorf("character %q cannot be used as an operator", op.Char)
		}
		if op.Precedence < 1 {
			return fmt.Errorf("operator %q needs a precedence of 1 or higher", op.Char)
		}
	}
	return nil
}

// PrecedenceTable returns the default operator table with the configured
// operators merged in.
func (c *Config) PrecedenceTable() parser.PrecedenceTable {
	table := parser.DefaultPrecedence()
	for _, op := range c.Operators {
		table[op.Char[0]] = op.Precedence
	}
	return table
}

func isAlphanumeric(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9'
}
