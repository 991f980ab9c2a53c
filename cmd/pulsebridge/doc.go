// Package main hosts the pulsebridge CLI entrypoint and command graph.
//
// The Cobra command tree runs the bridge daemon in the foreground and
// translates terminal invocations into IPC calls against it: emitting host
// playback callbacks, reporting bridge status, and stopping the daemon. Config
// scaffolding and validation run locally without a daemon.
package main
