// Package config loads assayer's YAML configuration. A missing file means
// defaults; invalid YAML is an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider configures the external generation provider.
type Provider struct {
	// Mode selects the provider: "local" (no external calls, deterministic
	// fallback only), "openai", or "azureopenai".
	Mode       string `yaml:"mode"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	TimeoutSec int    `yaml:"timeout_seconds"`
	// PIIMasking redacts model input before it leaves the process.
	PIIMasking bool `yaml:"pii_masking"`
}

// Config is the full assayer configuration.
type Config struct {
	Provider   Provider `yaml:"provider"`
	DBPath     string   `yaml:"db_path"`
	RuleRoots  []string `yaml:"rule_roots"`
	PromptRoot string   `yaml:"prompt_root"`
	AuditLog   string   `yaml:"audit_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	base := filepath.Join(home, ".assayer")

	return &Config{
		Provider: Provider{
			Mode:       "local",
			BaseURL:    "https://api.openai.com/v1/chat/completions",
			Model:      "gpt-4.1-mini",
			MaxTokens:  1200,
			TimeoutSec: 60,
			PIIMasking: true,
		},
		DBPath:     filepath.Join(base, "assayer.db"),
		RuleRoots:  []string{filepath.Join(base, "policy-packs")},
		PromptRoot: filepath.Join(base, "prompts"),
		AuditLog:   filepath.Join(base, "runs.jsonl"),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "assayer.yaml")
	}
	return filepath.Join(home, ".assayer", "config.yaml")
}

// Load reads configuration from path. Empty path falls back to DefaultPath.
// A missing file returns defaults; malformed YAML returns an error. Values
// present in the file overwrite defaults field by field.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandPaths()
	return cfg, nil
}

// expandPaths resolves "~/" in every path field so an init-generated config
// works as written.
func (c *Config) expandPaths() {
	c.DBPath = expandHome(c.DBPath)
	c.PromptRoot = expandHome(c.PromptRoot)
	c.AuditLog = expandHome(c.AuditLog)
	for i, root := range c.RuleRoots {
		c.RuleRoots[i] = expandHome(root)
	}
}

// expandHome resolves a leading "~" against the user's home directory. Paths
// without the prefix, and "~user" forms, pass through untouched.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultYAML returns a commented config file for `assayer init`.
func DefaultYAML() string {
	return `# assayer configuration
# Generated by: assayer init

# External generation provider for remediation drafts.
#   mode: local | openai | azureopenai
# "local" never calls out; drafts come from the deterministic fallback.
provider:
  mode: local
  base_url: https://api.openai.com/v1/chat/completions
  api_key: ""
  model: gpt-4.1-mini
  max_tokens: 1200
  timeout_seconds: 60
  pii_masking: true

# SQLite database holding tenants, systems, and assessment results.
db_path: ~/.assayer/assayer.db

# Directories of *.json rule-set files, one per policy domain.
rule_roots:
  - ~/.assayer/policy-packs

# Optional prompt template overrides ({key}.system.txt / {key}.user.txt).
prompt_root: ~/.assayer/prompts

# Append-only hash-chained log of assessment runs.
audit_log: ~/.assayer/runs.jsonl
`
}
