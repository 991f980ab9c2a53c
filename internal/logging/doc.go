// Package logging assembles structured slog loggers and formatting helpers used
// across pulsebridge components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes the standardized attribute keys (component, event_type,
// error_hint, impact, bridge_id) so transport, playlist archive, and daemon
// code emit log lines with the same shape. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
