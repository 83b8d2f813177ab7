// Package config loads, normalizes, and validates pairmux configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PAIRMUX_NTFY_TOPIC. The Config type centralizes every knob the merge
// pipeline and CLI need: the output base, the multiplexer binary, pool sizing,
// the conflict policy, and logging.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
