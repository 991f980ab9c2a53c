// Package playlistlog appends playlist callbacks to a plain-text archive.
//
// Each entry is a header line with the local wall-clock time, the serialized
// playlist, and a blank separator line. The file is opened in append mode for
// every entry and closed again; no handle is held between calls. Concurrent
// writers in this process are serialized by a mutex, and writers in other
// processes by an advisory flock on the archive itself.
package playlistlog

import (
	"bytes"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"pulsebridge/internal/failures"
	"pulsebridge/internal/logging"
)

// TimestampLayout formats entry headers as YYYY-MM-DD HH:MM:SS.
const TimestampLayout = "2006-01-02 15:04:05"

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides time.Now for entry headers.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// Writer appends entries to one archive file.
type Writer struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New returns a writer for path. The file is created on first append.
func New(path string, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{
		path:   path,
		logger: logging.NewComponentLogger(logger, "playlist_log"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the archive location.
func (w *Writer) Path() string {
	return w.path
}

// FormatEntry renders one archive entry.
func FormatEntry(at time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(payload) + 64)
	buf.WriteString("----- Playlist Callback at ")
	buf.WriteString(at.Local().Format(TimestampLayout))
	buf.WriteString(" -----\n")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes()
}

// Append writes payload as a new entry. Failures are logged on every
// occurrence and returned wrapped with failures.ErrPersistence; the entry is
// dropped.
func (w *Writer) Append(payload []byte) error {
	entry := FormatEntry(w.now(), payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return w.fail("failed to open file for writing playlist", "open", err)
	}
	defer file.Close()

	lock := flock.New(w.path)
	if err := lock.Lock(); err != nil {
		logging.WarnWithContext(w.logger, "playlist archive lock unavailable", "playlist_log_lock_failed",
			logging.String("path", w.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "entries from concurrent processes may interleave"))
	} else {
		defer func() { _ = lock.Unlock() }()
	}

	if _, err := file.Write(entry); err != nil {
		return w.fail("failed to write playlist entry", "write", err)
	}
	if err := file.Close(); err != nil {
		return w.fail("failed to close playlist archive", "close", err)
	}

	w.logger.Debug("playlist written", logging.String("path", w.path))
	return nil
}

func (w *Writer) fail(msg, operation string, err error) error {
	wrapped := failures.Wrap(failures.ErrPersistence, "playlist_log", operation, w.path, err)
	logging.ErrorWithContext(w.logger, msg, failures.EventType(wrapped),
		logging.String("path", w.path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the playlist log directory exists and is writable"))
	return wrapped
}
