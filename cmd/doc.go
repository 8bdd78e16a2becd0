// Package cmd implements the command-line interface for schedsvc.
//
// This package provides the following commands:
//   - serve: Start the HTTP availability service
//   - connections: Add, list and remove stored calendar connections
//   - availability: Compute free slots once and print them as JSON
//   - version: Display version information
//
// Settings are resolved in order: explicit flag, environment variable, TOML
// config file (--config), built-in default.
package cmd
