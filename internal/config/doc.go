// Package config loads cadence settings from an optional TOML file and
// CADENCE_* environment variables, then normalizes and validates them.
package config
