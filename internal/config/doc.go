// Package config loads, normalizes, and validates scantest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCANTEST_NTFY_TOPIC. The Config type centralizes every knob the CLI and the
// scan session controller need, so capture devices, decoder arguments, and
// feedback channels are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
