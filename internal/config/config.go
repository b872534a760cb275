package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for regmap-gen
type Config struct {
	// Targets selects the output languages: "c", "vhdl"
	Targets []string `json:"targets,omitempty"`

	// OutputDir is where generated files go; empty writes to stdout
	OutputDir string `json:"outputDir,omitempty"`

	// Inputs is a list of glob patterns for register description XML files
	Inputs []string `json:"inputs,omitempty"`

	// Exclude is a list of glob patterns to drop from the input set
	Exclude []string `json:"exclude,omitempty"`

	// ExternalRefs makes memory map headers #include the component headers
	// instead of inlining them
	ExternalRefs bool `json:"externalRefs,omitempty"`

	// MemoryMaps turns memory map generation on or off (default on)
	MemoryMaps *bool `json:"memoryMaps,omitempty"`

	// MaxParallelJobs limits concurrent artifact generation (0 = auto)
	MaxParallelJobs int `json:"maxParallelJobs,omitempty"`
}

// ValidTargets are the renderers the driver knows about.
var ValidTargets = []string{"c", "vhdl"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Targets:         []string{"c", "vhdl"},
		Inputs:          []string{"*.xml", "**/*.xml"},
		Exclude:         []string{},
		MemoryMaps:      boolPtr(true),
		MaxParallelJobs: 0, // auto
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// GenerateMaps reports whether memory map outputs are wanted.
func (c *Config) GenerateMaps() bool {
	return c.MemoryMaps == nil || *c.MemoryMaps
}

// ValidateTargets rejects target names no renderer exists for.
func (c *Config) ValidateTargets() error {
	for _, t := range c.Targets {
		known := false
		for _, v := range ValidTargets {
			if t == v {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown target %q (valid: %v)", t, ValidTargets)
		}
	}
	return nil
}

// Load finds and loads the configuration file
// Search order:
//  1. ./regmapgen.json (current working directory)
//  2. ./.regmapgen.json (current working directory)
//  3. <rootPath>/regmapgen.json (if different from cwd)
//  4. ~/.config/regmapgen/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "regmapgen.json"),
		filepath.Join(cwd, ".regmapgen.json"),
	}

	// If rootPath is a directory and different from cwd, also check there
	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "regmapgen.json"),
				filepath.Join(rootPath, ".regmapgen.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "regmapgen", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	// No config found, return defaults
	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Targets) == 0 {
		c.Targets = []string{"c", "vhdl"}
	}
	if len(c.Inputs) == 0 {
		c.Inputs = []string{"*.xml", "**/*.xml"}
	}
	if c.MemoryMaps == nil {
		c.MemoryMaps = boolPtr(true)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
