package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config represents the fetchform configuration
type Config struct {
	Timeout             int               `json:"timeout,omitempty"`      // milliseconds
	FetchTimeout        int               `json:"fetchTimeout,omitempty"` // milliseconds, 0 = no limit
	FetchRate           float64           `json:"fetchRate,omitempty"`    // remote fetches per second, 0 = unlimited
	FetchBurst          int               `json:"fetchBurst,omitempty"`
	MaxConcurrentFields int               `json:"maxConcurrentFields,omitempty"`
	TempDir             string            `json:"tempDir,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"` // Default headers for all requests
	Output              string            `json:"output,omitempty"`  // console or json
	Verbose             *bool             `json:"verbose,omitempty"`
	NoColor             *bool             `json:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".fetchform.json",
	"fetchform.config.json",
	".fetchformrc",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.FetchTimeout > 0 {
		result.FetchTimeout = other.FetchTimeout
	}
	if other.FetchRate > 0 {
		result.FetchRate = other.FetchRate
	}
	if other.FetchBurst > 0 {
		result.FetchBurst = other.FetchBurst
	}
	if other.MaxConcurrentFields > 0 {
		result.MaxConcurrentFields = other.MaxConcurrentFields
	}
	if other.TempDir != "" {
		result.TempDir = other.TempDir
	}
	if other.Output != "" {
		result.Output = other.Output
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
