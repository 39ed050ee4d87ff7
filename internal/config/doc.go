// Package config defines configuration structures for fetchd.
//
// Configuration is layered, later sources winning:
//   - Defaults
//   - YAML configuration file
//   - .env file (only for variables not already set)
//   - Environment variables (FETCHD_ prefix, plus PORT)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    Listen  string
//	    Service string
//	    Store   string // empty: requests name their own destination URI
//	    HTTP    HTTPConfig
//	    Log     LogConfig
//	    Metrics MetricsConfig
//	}
//
// Durations accept the human form used by download requests ("30s", "1h 30m",
// "2days"); sizes accept byte strings ("32KiB", "1MB").
package config
