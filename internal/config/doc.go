// Package config loads, normalizes, and validates pulsebridge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the two
// bridge endpoints (PULSEBRIDGE_SOCKET and PULSEBRIDGE_PLAYLIST_LOG). The
// Config type centralizes every knob the daemon and CLI need so the datagram
// destination, playlist archive, and control socket are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
