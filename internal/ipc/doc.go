// Package ipc exposes the running bridge daemon over JSON-RPC on a Unix
// socket and ships the matching client used by the CLI.
//
// The server forwards emitted host callbacks to the daemon's dispatcher and
// reports per-bridge status. Playlist documents travel as raw JSON so numeric
// fields keep their exact representation until the bridge validates them.
package ipc
