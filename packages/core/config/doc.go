// Package config handles configuration loading and management for fetchform.
//
// It provides functionality for:
//   - Loading configuration from .fetchform.json, fetchform.config.json or .fetchformrc
//   - Default configuration values
//   - Merging file values with command-line overrides
package config
