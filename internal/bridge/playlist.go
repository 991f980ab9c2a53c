package bridge

import (
	"encoding/json"
	"math"

	"pulsebridge/internal/failures"
)

// Playlist is the host's playlist document as decoded from JSON.
type Playlist map[string]any

// Actions that forward a playlist update to the listener.
const (
	ActionPlaying = "playing"
	ActionStart   = "start"
)

// PlaylistEvent is a validated playlist transition.
type PlaylistEvent struct {
	Size    int
	Name    string
	Action  string
	Section string
	Item    int
}

// Forwardable reports whether the event should reach the listener.
func (e PlaylistEvent) Forwardable() bool {
	return e.Size > 1 && (e.Action == ActionPlaying || e.Action == ActionStart)
}

// ParsePlaylistEvent extracts and validates the required size and name fields.
// The returned error wraps failures.ErrValidation.
func ParsePlaylistEvent(doc Playlist, action, section string, item int) (PlaylistEvent, error) {
	size, ok := intValue(doc["size"])
	if !ok || size < 0 {
		return PlaylistEvent{}, failures.Wrap(failures.ErrValidation, "bridge", "playlist",
			"playlist JSON does not contain a valid 'size' field", nil)
	}
	name, ok := doc["name"].(string)
	if !ok {
		return PlaylistEvent{}, failures.Wrap(failures.ErrValidation, "bridge", "playlist",
			"playlist JSON does not contain a valid 'name' field", nil)
	}
	return PlaylistEvent{
		Size:    size,
		Name:    name,
		Action:  action,
		Section: section,
		Item:    item,
	}, nil
}

// intValue accepts integral numbers that fit in a 32-bit int, whether they
// arrive as Go integers, float64 from encoding/json, or json.Number.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return fitInt32(int64(n))
	case int32:
		return int(n), true
	case int64:
		return fitInt32(n)
	case float64:
		return integralFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return fitInt32(i)
		}
		if f, err := n.Float64(); err == nil {
			return integralFloat(f)
		}
	}
	return 0, false
}

func fitInt32(n int64) (int, bool) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func integralFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
