// Package config loads and validates the bridge configuration from TOML,
// with environment variable expansion and duration parsing.
package config
