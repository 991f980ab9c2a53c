// Package failures defines the error markers shared by the bridge components.
//
// Each marker names a failure class: session-fatal initialization, per-event
// validation, per-message transport, per-write persistence, and configuration.
// Wrap tags a concrete error with one marker so callers can classify it with
// errors.Is and pick a stable event_type for structured logs.
package failures
