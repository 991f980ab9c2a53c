package bridge

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"pulsebridge/internal/config"
	"pulsebridge/internal/failures"
	"pulsebridge/internal/logging"
	"pulsebridge/internal/playlistlog"
	"pulsebridge/internal/syncguard"
	"pulsebridge/internal/transport"
	"pulsebridge/internal/wire"
)

// Options describes bridge construction parameters.
type Options struct {
	SocketPath        string
	PlaylistLogPath   string
	SanitizeFilenames bool
	ErrorLogThreshold int

	TransportOptions []transport.Option
	PlaylistOptions  []playlistlog.Option
}

// OptionsFromConfig maps the [bridge] config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Options{
		SocketPath:        cfg.Bridge.SocketPath,
		PlaylistLogPath:   cfg.Bridge.PlaylistLogPath,
		SanitizeFilenames: cfg.Bridge.SanitizeFilenames,
		ErrorLogThreshold: cfg.Bridge.ErrorLogThreshold,
	}
}

// Status is a point-in-time view of bridge state.
type Status struct {
	ID                  string `json:"id"`
	SocketPath          string `json:"socket_path"`
	PlaylistLogPath     string `json:"playlist_log_path"`
	Enabled             bool   `json:"enabled"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastBucket          int64  `json:"last_bucket"`
	HasBucket           bool   `json:"has_bucket"`
}

// Bridge forwards host callbacks to the listener and the playlist archive.
type Bridge struct {
	id        string
	logger    *slog.Logger
	transport *transport.Transport
	archive   *playlistlog.Writer
	guard     *syncguard.Guard
	encoder   wire.Encoder
	enabled   atomic.Bool
}

// New constructs a disabled bridge; call Open to enable sending.
func New(opts Options, logger *slog.Logger) *Bridge {
	id := uuid.NewString()
	if logger == nil {
		logger = logging.NewNop()
	}
	base := logger.With(logging.BridgeID(id))

	topts := append([]transport.Option{transport.WithErrorLogThreshold(opts.ErrorLogThreshold)}, opts.TransportOptions...)
	return &Bridge{
		id:        id,
		logger:    logging.NewComponentLogger(base, "bridge"),
		transport: transport.New(opts.SocketPath, base, topts...),
		archive:   playlistlog.New(opts.PlaylistLogPath, base, opts.PlaylistOptions...),
		guard:     syncguard.New(),
		encoder:   wire.Encoder{SanitizeFilenames: opts.SanitizeFilenames},
	}
}

// ID returns the bridge instance identifier.
func (b *Bridge) ID() string {
	return b.id
}

// Open opens the transport. On failure the bridge stays in disabled mode for
// its lifetime: sends become no-ops while the playlist archive keeps working.
// The returned error wraps failures.ErrInit and is informational only.
func (b *Bridge) Open() error {
	if err := b.transport.Open(); err != nil {
		b.enabled.Store(false)
		logging.ErrorWithContext(b.logger, "initialization failed", failures.EventType(err),
			logging.Error(err),
			logging.Socket(b.transport.Path()),
			logging.String(logging.FieldErrorHint, "start the listener so the socket exists, then restart the bridge"),
			logging.String(logging.FieldImpact, "notifications will not be forwarded this session"))
		return err
	}
	b.enabled.Store(true)
	b.logger.Info("bridge ready",
		logging.Socket(b.transport.Path()),
		logging.String("playlist_log", b.archive.Path()))
	return nil
}

// Close disables sending and releases the transport. It is idempotent.
func (b *Bridge) Close() error {
	b.enabled.Store(false)
	return b.transport.Close()
}

// Enabled reports whether sends are currently attempted.
func (b *Bridge) Enabled() bool {
	return b.enabled.Load()
}

// Status reports the bridge's current state.
func (b *Bridge) Status() Status {
	bucket, ok := b.guard.Last()
	return Status{
		ID:                  b.id,
		SocketPath:          b.transport.Path(),
		PlaylistLogPath:     b.archive.Path(),
		Enabled:             b.Enabled(),
		ConsecutiveFailures: b.transport.ConsecutiveFailures(),
		LastBucket:          bucket,
		HasBucket:           ok,
	}
}

// PlaylistEvent archives a playlist transition and forwards it when it is
// valid, has more than one entry, and action is "playing" or "start".
func (b *Bridge) PlaylistEvent(doc Playlist, action, section string, item int) {
	b.logger.Debug("playlist callback",
		logging.String("action", action),
		logging.String("section", section),
		logging.Int("item", item))

	b.archivePlaylist(doc)

	event, err := ParsePlaylistEvent(doc, action, section, item)
	if err != nil {
		logging.ErrorWithContext(b.logger, "playlist event rejected", failures.EventType(err),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "host playlist payload must carry integer size and string name"))
		return
	}
	if !event.Forwardable() {
		return
	}
	if !b.Enabled() {
		b.logger.Debug("transport disabled; playlist update skipped", logging.String("name", event.Name))
		return
	}

	message := b.encoder.PlaylistUpdate(event.Name, event.Section, event.Item)
	if !b.transport.Send([]byte(message)) {
		logging.ErrorWithContext(b.logger, "failed to send playlist update", "playlist_update_failed",
			logging.String("message", message))
		return
	}
	b.logger.Info("playlist update sent", logging.String("message", message))
}

func (b *Bridge) archivePlaylist(doc Playlist) {
	payload, err := marshalPlaylist(doc)
	if err != nil {
		wrapped := failures.Wrap(failures.ErrPersistence, "bridge", "playlist", "serialize playlist", err)
		logging.ErrorWithContext(b.logger, "playlist not archived", failures.EventType(wrapped), logging.Error(wrapped))
		return
	}
	// Append logs its own failures.
	_ = b.archive.Append(payload)
}

// marshalPlaylist serializes doc compactly with &, < and > kept literal.
func marshalPlaylist(doc Playlist) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MediaOpen forwards SendMediaOpenPacket/<filename>.
func (b *Bridge) MediaOpen(filename string) {
	if !b.Enabled() {
		return
	}
	b.transport.Send([]byte(b.encoder.MediaOpen(filename)))
}

// MediaSyncStart forwards SendMediaSyncStartPacket/<filename>.
func (b *Bridge) MediaSyncStart(filename string) {
	if !b.Enabled() {
		return
	}
	b.transport.Send([]byte(b.encoder.MediaSyncStart(filename)))
}

// MediaSyncStop forwards SendMediaSyncStopPacket/<filename>.
func (b *Bridge) MediaSyncStop(filename string) {
	if !b.Enabled() {
		return
	}
	b.transport.Send([]byte(b.encoder.MediaSyncStop(filename)))
}

// MediaSync forwards SendMediaSyncPacket/<filename>/<seconds> at most once
// per half-second bucket.
func (b *Bridge) MediaSync(filename string, seconds float64) {
	if !b.Enabled() {
		return
	}
	if !b.guard.Allow(seconds) {
		return
	}
	b.logger.Debug("media sync forwarded",
		logging.Float64("seconds", seconds),
		logging.Int64("bucket", syncguard.Bucket(seconds)))
	b.transport.Send([]byte(b.encoder.MediaSync(filename, seconds)))
}
