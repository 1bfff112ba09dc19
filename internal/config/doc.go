// Package config loads, normalizes, and validates clipflow's TOML
// configuration. Values resolve in order: defaults, config file, environment
// overrides for service credentials.
package config
