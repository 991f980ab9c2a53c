package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"pulsebridge/internal/failures"
	"pulsebridge/internal/logging"
)

// DefaultErrorLogThreshold is how many consecutive send failures are logged
// before the suppression notice.
const DefaultErrorLogThreshold = 10

// MaxPathLen is the longest socket path that fits sockaddr_un.sun_path.
const MaxPathLen = 107

// Socket is a connectionless datagram endpoint.
type Socket interface {
	// SendTo transmits p to the socket at path in one operation and reports
	// how many bytes the OS accepted.
	SendTo(p []byte, path string) (int, error)
	Close() error
}

// Option configures a Transport.
type Option func(*Transport)

// WithErrorLogThreshold overrides DefaultErrorLogThreshold. Values below one
// are ignored.
func WithErrorLogThreshold(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.threshold = n
		}
	}
}

// WithSocketFactory replaces the Unix datagram socket constructor and the
// destination writability check. Intended for tests and non-Linux embedding.
func WithSocketFactory(open func() (Socket, error), checkPath func(string) error) Option {
	return func(t *Transport) {
		if open != nil {
			t.openSocket = open
		}
		if checkPath != nil {
			t.checkPath = checkPath
		}
	}
}

// Transport sends encoded commands to a fixed datagram socket path.
type Transport struct {
	path       string
	logger     *slog.Logger
	threshold  int
	openSocket func() (Socket, error)
	checkPath  func(string) error

	mu     sync.RWMutex
	socket Socket

	errors ErrorCounter
}

// New configures a transport for path. Nothing is opened until Open.
func New(path string, logger *slog.Logger, opts ...Option) *Transport {
	t := &Transport{
		path:       path,
		logger:     logging.NewComponentLogger(logger, "transport").With(logging.Socket(path)),
		threshold:  DefaultErrorLogThreshold,
		openSocket: openUnixDatagram,
		checkPath:  checkWritable,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Path returns the destination socket path.
func (t *Transport) Path() string {
	return t.path
}

// Open creates the client socket and validates the destination. Any failure
// is wrapped with failures.ErrInit and leaves the transport closed; callers
// treat that as permanent for the session. Calling Open on an open transport
// is a no-op.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.socket != nil {
		return nil
	}

	if len(t.path) == 0 {
		return failures.Wrap(failures.ErrInit, "transport", "open", "socket path is empty", nil)
	}
	if len(t.path) > MaxPathLen {
		return failures.Wrap(failures.ErrInit, "transport", "open",
			fmt.Sprintf("socket path too long (%d bytes, max %d)", len(t.path), MaxPathLen), nil)
	}

	sock, err := t.openSocket()
	if err != nil {
		return failures.Wrap(failures.ErrInit, "transport", "open", "create socket", err)
	}
	if err := t.checkPath(t.path); err != nil {
		_ = sock.Close()
		return failures.Wrap(failures.ErrInit, "transport", "open", "cannot access socket path "+t.path, err)
	}

	t.socket = sock
	t.logger.Debug("datagram socket ready")
	return nil
}

// Connected reports whether Open succeeded and Close has not been called.
func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.socket != nil
}

// ConsecutiveFailures returns the current consecutive send failure count.
func (t *Transport) ConsecutiveFailures() int {
	return t.errors.Count()
}

// Send transmits message as a single datagram and reports whether the whole
// payload was accepted. Failed messages are dropped.
func (t *Transport) Send(message []byte) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.socket == nil {
		logging.ErrorWithContext(t.logger, "cannot send message: socket not connected", "transport_not_connected",
			logging.String("message", string(message)),
			logging.String(logging.FieldErrorHint, "check that the listener socket exists and restart the bridge"))
		return false
	}

	sent, err := t.socket.SendTo(message, t.path)
	if err != nil {
		t.reportFailure(message, err)
		return false
	}
	if sent < len(message) {
		logging.WarnWithContext(t.logger, "message truncated", "transport_truncated",
			logging.String("message", string(message)),
			logging.Int("sent_bytes", sent),
			logging.Int("message_bytes", len(message)),
			logging.String(logging.FieldImpact, "listener received a partial command"))
		return false
	}

	t.errors.Reset()
	return true
}

func (t *Transport) reportFailure(message []byte, err error) {
	count := t.errors.Fail()
	switch {
	case count <= t.threshold:
		wrapped := failures.Wrap(failures.ErrTransport, "transport", "send", "send to "+t.path, err)
		logging.ErrorWithContext(t.logger, "failed to send message", failures.EventType(wrapped),
			logging.String("message", string(message)),
			logging.Int("consecutive_failures", count),
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "verify the listener is running and bound to the socket path"))
	case count == t.threshold+1:
		logging.ErrorWithContext(t.logger, "further send errors suppressed to prevent log flooding", "transport_errors_suppressed",
			logging.Int("threshold", t.threshold),
			logging.String(logging.FieldErrorHint, "logging resumes after the next successful send"))
	}
}

// Close releases the socket. It is safe to call repeatedly and before Open.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.socket == nil {
		return nil
	}
	err := t.socket.Close()
	t.socket = nil
	return err
}
