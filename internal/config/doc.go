// Package config loads the optional fold-call TOML configuration file,
// with ${VAR} environment expansion and duration-string parsing. Every
// value has a flag equivalent; the file only provides defaults.
package config
