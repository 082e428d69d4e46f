// Package config provides configuration loading and management for voxelselect.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML or TOML
type Config struct {
	// Selection tool defaults
	Selection struct {
		// BlockSize is the edge length of the block painted by the block tool
		BlockSize int `yaml:"blockSize" toml:"blockSize"`

		// Axes lists the axes the block tool extends along
		Axes []int `yaml:"axes" toml:"axes"`

		// Precision is the value tolerance for region growing; 0 means exact
		Precision float64 `yaml:"precision" toml:"precision"`

		// SearchRadius limits region growing; empty or zero means unlimited
		SearchRadius []float64 `yaml:"searchRadius,omitempty" toml:"searchRadius,omitempty"`

		// Local restricts region growing to the seed's connected region
		Local bool `yaml:"local" toml:"local"`
	} `yaml:"selection" toml:"selection"`

	// Editor parameters
	Editor struct {
		// MaxHistory caps the number of undo steps kept
		MaxHistory int `yaml:"maxHistory" toml:"maxHistory"`

		// Verbose enables debug logging of history operations
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"editor" toml:"editor"`

	// Render parameters
	Render struct {
		// CacheEntries is the number of display states with a cached buffer
		CacheEntries int `yaml:"cacheEntries" toml:"cacheEntries"`

		// Alpha is the opacity written for selected voxels
		Alpha uint8 `yaml:"alpha" toml:"alpha"`
	} `yaml:"render" toml:"render"`

	// Storage parameters
	Storage struct {
		// Compress enables snappy compression of saved masks
		Compress bool `yaml:"compress" toml:"compress"`
	} `yaml:"storage" toml:"storage"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default selection parameters
	cfg.Selection.BlockSize = 3
	cfg.Selection.Axes = []int{0, 1, 2}
	cfg.Selection.Precision = 0
	cfg.Selection.SearchRadius = nil
	cfg.Selection.Local = false

	// Set default editor parameters
	cfg.Editor.MaxHistory = 100
	cfg.Editor.Verbose = false

	// Set default render parameters
	cfg.Render.CacheEntries = 4
	cfg.Render.Alpha = 255

	cfg.Storage.Compress = true

	return cfg
}

// Validate checks the configuration for values the tools cannot use
func (c *Config) Validate() error {
	if c.Selection.BlockSize < 1 {
		return fmt.Errorf("%w: selection.blockSize must be at least 1, got %d", ErrInvalidConfig, c.Selection.BlockSize)
	}
	for _, ax := range c.Selection.Axes {
		if ax < 0 || ax > 2 {
			return fmt.Errorf("%w: selection.axes entry %d is not 0, 1 or 2", ErrInvalidConfig, ax)
		}
	}
	if c.Selection.Precision < 0 {
		return fmt.Errorf("%w: selection.precision must not be negative", ErrInvalidConfig)
	}
	switch len(c.Selection.SearchRadius) {
	case 0, 1, 3:
	default:
		return fmt.Errorf("%w: selection.searchRadius needs 1 or 3 values, got %d", ErrInvalidConfig, len(c.Selection.SearchRadius))
	}
	for _, r := range c.Selection.SearchRadius {
		if r < 0 {
			return fmt.Errorf("%w: selection.searchRadius must not be negative", ErrInvalidConfig)
		}
	}
	if c.Editor.MaxHistory < 0 {
		return fmt.Errorf("%w: editor.maxHistory must not be negative", ErrInvalidConfig)
	}
	if c.Render.CacheEntries < 1 {
		return fmt.Errorf("%w: render.cacheEntries must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// isTOML reports whether the path names a TOML file; anything else is YAML
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse by extension
	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
