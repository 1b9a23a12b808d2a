// Package config loads and validates fetchd's TOML configuration.
//
// Load resolves the config file (explicit path, ~/.config/fetchd/config.toml,
// or ./fetchd.toml), applies defaults for anything unset, expands paths, and
// validates the result. Missing files are not an error; the defaults form a
// runnable configuration.
package config
