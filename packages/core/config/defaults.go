package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:             120000, // 2 minutes
		FetchTimeout:        0,
		FetchRate:           0,
		FetchBurst:          1,
		MaxConcurrentFields: 0,
		TempDir:             "",
		Headers:             nil,
		Output:              "console",
		Verbose:             BoolPtr(false),
		NoColor:             BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.FetchTimeout == defaults.FetchTimeout &&
		c.FetchRate == defaults.FetchRate &&
		c.FetchBurst == defaults.FetchBurst &&
		c.MaxConcurrentFields == defaults.MaxConcurrentFields &&
		c.TempDir == defaults.TempDir &&
		len(c.Headers) == 0 &&
		c.Output == defaults.Output &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
