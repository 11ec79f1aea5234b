// Package config loads dbkit configuration from YAML files and
// environment variables. Connection and pool parameters are read once at
// engine construction time; the analyzer threshold is read when a capture
// window opens.
package config
