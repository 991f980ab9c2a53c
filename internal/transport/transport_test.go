package transport_test

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"pulsebridge/internal/failures"
	"pulsebridge/internal/testsupport"
	"pulsebridge/internal/transport"
)

type fakeSocket struct {
	mu     sync.Mutex
	sent   []string
	err    error
	short  int
	closed int
}

func (f *fakeSocket) SendTo(p []byte, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, string(p))
	if f.err != nil {
		return -1, f.err
	}
	if f.short > 0 {
		return len(p) - f.short, nil
	}
	return len(p), nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSocket) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSocket) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newFakeTransport(t *testing.T, sock *fakeSocket, opts ...transport.Option) (*transport.Transport, *testsupport.LogRecorder) {
	t.Helper()
	rec, logger := testsupport.NewLogRecorder()
	opts = append([]transport.Option{transport.WithSocketFactory(
		func() (transport.Socket, error) { return sock, nil },
		func(string) error { return nil },
	)}, opts...)
	tr := transport.New("/tmp/PULSE", logger, opts...)
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tr, rec
}

func TestSendSuccessResetsCounter(t *testing.T) {
	sock := &fakeSocket{}
	tr, rec := newFakeTransport(t, sock)

	if !tr.Send([]byte("SendMediaOpenPacket/a.mp3")) {
		t.Fatal("expected send to succeed")
	}
	if tr.ConsecutiveFailures() != 0 {
		t.Fatalf("expected zero failures, got %d", tr.ConsecutiveFailures())
	}
	if rec.CountLevel(slog.LevelError) != 0 {
		t.Fatalf("expected no error logs, got %d", rec.CountLevel(slog.LevelError))
	}
	if sock.sent[0] != "SendMediaOpenPacket/a.mp3" {
		t.Fatalf("unexpected payload %q", sock.sent[0])
	}
}

func TestSendFailureLoggingIsSuppressedAfterThreshold(t *testing.T) {
	sock := &fakeSocket{err: syscall.ECONNREFUSED}
	tr, rec := newFakeTransport(t, sock)

	for i := 0; i < 12; i++ {
		if tr.Send([]byte("SendMediaSyncStopPacket/a.mp3")) {
			t.Fatalf("send %d unexpectedly succeeded", i+1)
		}
	}
	if got := rec.Count(slog.LevelError, "failed to send message"); got != 10 {
		t.Fatalf("expected 10 per-failure logs, got %d", got)
	}
	if got := rec.Count(slog.LevelError, "further send errors suppressed"); got != 1 {
		t.Fatalf("expected 1 suppression notice, got %d", got)
	}
	if got := rec.CountLevel(slog.LevelError); got != 11 {
		t.Fatalf("expected 11 error records in total, got %d", got)
	}
	if tr.ConsecutiveFailures() != 12 {
		t.Fatalf("expected 12 consecutive failures, got %d", tr.ConsecutiveFailures())
	}
	if sock.attempts() != 12 {
		t.Fatalf("expected every send to be attempted, got %d", sock.attempts())
	}

	sock.setErr(nil)
	if !tr.Send([]byte("SendMediaSyncStopPacket/a.mp3")) {
		t.Fatal("expected send to succeed after listener recovered")
	}
	if tr.ConsecutiveFailures() != 0 {
		t.Fatalf("expected counter reset, got %d", tr.ConsecutiveFailures())
	}

	rec.Reset()
	sock.setErr(syscall.ENOENT)
	tr.Send([]byte("SendMediaSyncStopPacket/a.mp3"))
	if got := rec.Count(slog.LevelError, "failed to send message"); got != 1 {
		t.Fatalf("expected failure logging to resume, got %d", got)
	}
	if v, ok := rec.Attr("failed to send message", "consecutive_failures"); !ok || v.Int64() != 1 {
		t.Fatalf("expected consecutive_failures=1, got %v (ok=%v)", v, ok)
	}
}

func TestSendFailureIsTaggedAsTransportError(t *testing.T) {
	sock := &fakeSocket{err: syscall.ECONNREFUSED}
	tr, rec := newFakeTransport(t, sock)

	tr.Send([]byte("SendMediaOpenPacket/a.mp3"))

	if v, ok := rec.Attr("failed to send message", "event_type"); !ok || v.String() != "transport_send_failed" {
		t.Fatalf("unexpected event_type %v (ok=%v)", v, ok)
	}
	v, ok := rec.Attr("failed to send message", "error")
	if !ok {
		t.Fatal("expected error attribute")
	}
	err, _ := v.Any().(error)
	if !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("expected os error to be kept, got %v", err)
	}
}

func TestCustomThreshold(t *testing.T) {
	sock := &fakeSocket{err: syscall.EAGAIN}
	tr, rec := newFakeTransport(t, sock, transport.WithErrorLogThreshold(2))

	for i := 0; i < 5; i++ {
		tr.Send([]byte("x"))
	}
	if got := rec.Count(slog.LevelError, "failed to send message"); got != 2 {
		t.Fatalf("expected 2 failure logs, got %d", got)
	}
	if got := rec.Count(slog.LevelError, "further send errors suppressed"); got != 1 {
		t.Fatalf("expected 1 suppression notice, got %d", got)
	}
}

func TestTruncatedSendIsLoggedEveryTimeWithoutCounting(t *testing.T) {
	sock := &fakeSocket{short: 3}
	tr, rec := newFakeTransport(t, sock)

	for i := 0; i < 15; i++ {
		if tr.Send([]byte("SendMediaOpenPacket/a.mp3")) {
			t.Fatal("expected truncated send to report failure")
		}
	}
	if got := rec.Count(slog.LevelWarn, "message truncated"); got != 15 {
		t.Fatalf("expected 15 truncation warnings, got %d", got)
	}
	if tr.ConsecutiveFailures() != 0 {
		t.Fatalf("expected truncation not to count as send failure, got %d", tr.ConsecutiveFailures())
	}
}

func TestFailedSendIsNeverRetried(t *testing.T) {
	sock := &fakeSocket{err: syscall.ECONNREFUSED}
	tr, _ := newFakeTransport(t, sock)

	tr.Send([]byte("SendMediaOpenPacket/a.mp3"))
	if sock.attempts() != 1 {
		t.Fatalf("expected one attempt, got %d", sock.attempts())
	}
	tr.Send([]byte("SendMediaOpenPacket/a.mp3"))
	if sock.attempts() != 2 {
		t.Fatalf("expected two independent attempts, got %d", sock.attempts())
	}
	if tr.ConsecutiveFailures() != 2 {
		t.Fatalf("expected both attempts to count, got %d", tr.ConsecutiveFailures())
	}
}

func TestSendWithoutOpenLogsEveryCall(t *testing.T) {
	rec, logger := testsupport.NewLogRecorder()
	tr := transport.New("/tmp/PULSE", logger)

	for i := 0; i < 13; i++ {
		if tr.Send([]byte("x")) {
			t.Fatal("expected send on unopened transport to fail")
		}
	}
	if got := rec.Count(slog.LevelError, "socket not connected"); got != 13 {
		t.Fatalf("expected 13 not-connected logs, got %d", got)
	}
	if tr.ConsecutiveFailures() != 0 {
		t.Fatalf("expected not-connected not to count, got %d", tr.ConsecutiveFailures())
	}
}

func TestOpenFailures(t *testing.T) {
	createErr := errors.New("emfile")
	tests := []struct {
		name      string
		path      string
		open      func() (transport.Socket, error)
		check     func(string) error
		wantClose bool
	}{
		{
			name: "path too long",
			path: "/" + strings.Repeat("a", transport.MaxPathLen),
		},
		{
			name: "empty path",
			path: "",
		},
		{
			name: "socket creation",
			path: "/tmp/PULSE",
			open: func() (transport.Socket, error) { return nil, createErr },
		},
		{
			name:      "path not writable",
			path:      "/tmp/PULSE",
			check:     func(string) error { return syscall.EACCES },
			wantClose: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sock := &fakeSocket{}
			open := tt.open
			if open == nil {
				open = func() (transport.Socket, error) { return sock, nil }
			}
			check := tt.check
			if check == nil {
				check = func(string) error { return nil }
			}
			tr := transport.New(tt.path, nil, transport.WithSocketFactory(open, check))
			err := tr.Open()
			if err == nil {
				t.Fatal("expected Open to fail")
			}
			if !errors.Is(err, failures.ErrInit) {
				t.Fatalf("expected init error, got %v", err)
			}
			if tr.Connected() {
				t.Fatal("expected transport to stay closed")
			}
			if tt.wantClose && sock.closed != 1 {
				t.Fatalf("expected socket to be released, closed=%d", sock.closed)
			}
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := transport.New("/tmp/PULSE", nil)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close before Open: %v", err)
	}

	sock := &fakeSocket{}
	tr, _ = newFakeTransport(t, sock)
	if !tr.Connected() {
		t.Fatal("expected connected after Open")
	}
	for i := 0; i < 3; i++ {
		if err := tr.Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
	}
	if sock.closed != 1 {
		t.Fatalf("expected socket closed once, got %d", sock.closed)
	}
	if tr.Send([]byte("x")) {
		t.Fatal("expected send after close to fail")
	}
}

func TestUnixDatagramDelivery(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("unix datagram transport requires linux")
	}
	dir := testsupport.ShortSocketDir(t)
	path := filepath.Join(dir, "pulse.sock")

	listener, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping datagram test: %v", err)
		}
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	tr := transport.New(path, nil)
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	if !tr.Send([]byte("SendMediaSyncPacket/song.mp3/1.500000")) {
		t.Fatal("expected send to succeed")
	}

	buf := make([]byte, 256)
	if err := listener.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	n, err := listener.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "SendMediaSyncPacket/song.mp3/1.500000" {
		t.Fatalf("unexpected datagram %q", got)
	}

	// A listener that goes away makes sends fail without disabling the transport.
	listener.Close()
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove socket: %v", err)
	}
	if tr.Send([]byte("SendMediaOpenPacket/song.mp3")) {
		t.Fatal("expected send to fail with no listener")
	}
	if tr.ConsecutiveFailures() != 1 {
		t.Fatalf("expected one consecutive failure, got %d", tr.ConsecutiveFailures())
	}
	if !tr.Connected() {
		t.Fatal("expected transport to stay open after a failed send")
	}
}

func TestUnixDatagramOpenRequiresExistingPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("unix datagram transport requires linux")
	}
	path := filepath.Join(testsupport.ShortSocketDir(t), "missing.sock")
	tr := transport.New(path, nil)
	err := tr.Open()
	if !errors.Is(err, failures.ErrInit) {
		t.Fatalf("expected init error for missing socket, got %v", err)
	}
}
