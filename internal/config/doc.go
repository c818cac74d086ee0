// Package config loads, normalizes, and validates pktcore configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PKTCORE_LOG_LEVEL and PKTCORE_BUFFER_SIZE. Byte sizes are written the way
// people type them ("1MiB", "512KB") and parsed once here.
//
// Always obtain settings through this package so split and combine receive
// sanitized paths, a bounded buffer size, and clear validation errors.
package config
