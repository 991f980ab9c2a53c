package ipc

import (
	"encoding/json"

	"pulsebridge/internal/bridge"
)

// PlaylistEventRequest carries a host playlist transition.
type PlaylistEventRequest struct {
	Playlist json.RawMessage `json:"playlist"`
	Action   string          `json:"action"`
	Section  string          `json:"section"`
	Item     int             `json:"item"`
}

// MediaRequest carries a media lifecycle notification.
type MediaRequest struct {
	Filename string `json:"filename"`
}

// MediaSyncRequest carries a playback position tick.
type MediaSyncRequest struct {
	Filename string  `json:"filename"`
	Seconds  float64 `json:"seconds"`
}

// DispatchResponse reports how many bridges received a callback.
type DispatchResponse struct {
	Bridges int `json:"bridges"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// BridgeStatus mirrors bridge.Status for IPC callers.
type BridgeStatus = bridge.Status

// StatusResponse represents daemon and bridge state.
type StatusResponse struct {
	PID              int            `json:"pid"`
	StartedAt        string         `json:"started_at"`
	MultiSyncEnabled bool           `json:"multisync_enabled"`
	ControlSocket    string         `json:"control_socket"`
	Bridges          []BridgeStatus `json:"bridges"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
