// Package config provides run configuration for stigsheets.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything one generation run needs. Values can come from a
// YAML file, command-line flags, or the defaults; flags win over the file.
type Config struct {
	// TiersPath points at the tier assignment source (JSON, CSV, or YAML).
	// Empty means the embedded default assignment.
	TiersPath string `yaml:"tiers,omitempty"`

	// ControlsPath points at the control-definitions JSON.
	ControlsPath string `yaml:"controls"`

	// CCIPath points at the CCI-mappings JSON.
	CCIPath string `yaml:"cci"`

	// OutputPath is where the report lands. For the csv format it is
	// treated as a directory.
	OutputPath string `yaml:"output"`

	// Formats lists the report formats to generate.
	Formats []string `yaml:"formats,omitempty"`

	// DetailedCCI adds a per-CCI breakdown view for every tier.
	DetailedCCI bool `yaml:"detailed_cci,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is specified:
// the embedded tier assignment and the newest control-data revision.
func DefaultConfig() *Config {
	return &Config{
		ControlsPath: "r5controls.json",
		CCIPath:      "rev5cci.json",
		OutputPath:   "STIG_Control_Level_Reference.xlsx",
		Formats:      []string{"xlsx"},
	}
}

// LoadConfig reads and parses a YAML configuration file, applying defaults
// for anything the file leaves unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted source (config file)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.ControlsPath == "" {
		return fmt.Errorf("controls path is required")
	}
	if c.CCIPath == "" {
		return fmt.Errorf("cci path is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if len(c.Formats) == 0 {
		return fmt.Errorf("at least one report format is required")
	}
	for _, f := range c.Formats {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("report format names must be non-empty")
		}
	}
	return nil
}
