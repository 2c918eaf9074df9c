// Package config handles configuration loading for coven-desk.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Every field has a default, so a missing file is not an error.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_DESK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/desk.yaml
//  3. ~/.config/coven/desk.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	providers:
//	  anthropic:
//	    api_key: "${ANTHROPIC_API_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	conversation:
//	  inactivity_timeout: "30m"
//	providers:
//	  echo:
//	    delay: "25ms"
//
// # Paths
//
// database.path and personas.path may start with "~/", which expands to the
// user's home directory.
package config
