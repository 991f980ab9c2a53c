// Package multisync fans host playback callbacks out to every registered
// bridge.
package multisync

import (
	"log/slog"
	"sort"
	"sync"

	"pulsebridge/internal/bridge"
	"pulsebridge/internal/logging"
)

// Sink receives host playback callbacks.
type Sink interface {
	ID() string
	PlaylistEvent(doc bridge.Playlist, action, section string, item int)
	MediaOpen(filename string)
	MediaSyncStart(filename string)
	MediaSyncStop(filename string)
	MediaSync(filename string, seconds float64)
}

// Dispatcher holds the active sinks. Callbacks are delivered to every sink
// in registration-independent order on the caller's goroutine.
type Dispatcher struct {
	logger *slog.Logger

	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logging.NewComponentLogger(logger, "multisync"),
		sinks:  make(map[string]Sink),
	}
}

// Add registers sink, replacing any sink with the same ID.
func (d *Dispatcher) Add(sink Sink) {
	if sink == nil {
		return
	}
	d.mu.Lock()
	d.sinks[sink.ID()] = sink
	count := len(d.sinks)
	d.mu.Unlock()
	d.logger.Debug("sink registered", logging.BridgeID(sink.ID()), logging.Int("sinks", count))
}

// Remove unregisters the sink with id and reports whether it was present.
func (d *Dispatcher) Remove(id string) bool {
	d.mu.Lock()
	_, ok := d.sinks[id]
	delete(d.sinks, id)
	d.mu.Unlock()
	if ok {
		d.logger.Debug("sink removed", logging.BridgeID(id))
	}
	return ok
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sinks)
}

// IDs returns the registered sink IDs in sorted order.
func (d *Dispatcher) IDs() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.sinks))
	for id := range d.sinks {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (d *Dispatcher) each(fn func(Sink)) {
	d.mu.RLock()
	sinks := make([]Sink, 0, len(d.sinks))
	for _, sink := range d.sinks {
		sinks = append(sinks, sink)
	}
	d.mu.RUnlock()
	for _, sink := range sinks {
		fn(sink)
	}
}

// PlaylistEvent delivers a playlist transition to every sink.
func (d *Dispatcher) PlaylistEvent(doc bridge.Playlist, action, section string, item int) {
	d.each(func(s Sink) { s.PlaylistEvent(doc, action, section, item) })
}

// MediaOpen delivers a media-open notification to every sink.
func (d *Dispatcher) MediaOpen(filename string) {
	d.each(func(s Sink) { s.MediaOpen(filename) })
}

// MediaSyncStart delivers a sync-start notification to every sink.
func (d *Dispatcher) MediaSyncStart(filename string) {
	d.each(func(s Sink) { s.MediaSyncStart(filename) })
}

// MediaSyncStop delivers a sync-stop notification to every sink.
func (d *Dispatcher) MediaSyncStop(filename string) {
	d.each(func(s Sink) { s.MediaSyncStop(filename) })
}

// MediaSync delivers a position tick to every sink.
func (d *Dispatcher) MediaSync(filename string, seconds float64) {
	d.each(func(s Sink) { s.MediaSync(filename, seconds) })
}

// WarnIfDisabled logs the operator notice emitted when host multi-sync is off.
func WarnIfDisabled(logger *slog.Logger, enabled bool) {
	if enabled {
		return
	}
	logging.WarnWithContext(logging.NewComponentLogger(logger, "multisync"), "MultiSync is not enabled", "multisync_disabled",
		logging.String(logging.FieldErrorHint, "enable multi-sync in the host so playback callbacks are delivered"),
		logging.String(logging.FieldImpact, "the bridge will only receive playlist callbacks"))
}
