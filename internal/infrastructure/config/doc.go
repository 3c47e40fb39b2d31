// Package config loads and validates Weathervane configuration.
//
// Configuration is YAML-based with three layers of precedence:
//
//  1. Built-in defaults (defaultConfig)
//  2. Values from the YAML file passed to Load
//  3. WEATHERVANE_* environment variable overrides
//
// Secrets (the InfluxDB token, MQTT credentials) should be supplied via
// environment variables rather than committed to the config file.
package config
