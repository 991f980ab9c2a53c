package ipc_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pulsebridge/internal/bridge"
	"pulsebridge/internal/ipc"
	"pulsebridge/internal/logging"
	"pulsebridge/internal/testsupport"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	playlist bridge.Playlist
	stopped  bool
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) PlaylistEvent(doc bridge.Playlist, action, section string, item int) {
	f.mu.Lock()
	f.playlist = doc
	f.mu.Unlock()
	f.record("playlist:" + action + ":" + section)
}
func (f *fakeBackend) MediaOpen(filename string)      { f.record("open:" + filename) }
func (f *fakeBackend) MediaSyncStart(filename string) { f.record("start:" + filename) }
func (f *fakeBackend) MediaSyncStop(filename string)  { f.record("stop:" + filename) }
func (f *fakeBackend) MediaSync(filename string, seconds float64) {
	f.record("sync:" + filename)
}
func (f *fakeBackend) Len() int { return 2 }
func (f *fakeBackend) Bridges() []bridge.Status {
	return []bridge.Status{{ID: "b-1", SocketPath: "/tmp/PULSE", Enabled: true, LastBucket: 4, HasBucket: true}}
}
func (f *fakeBackend) MultiSyncEnabled() bool { return true }
func (f *fakeBackend) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func startServer(t *testing.T, backend ipc.Backend) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(testsupport.ShortSocketDir(t), "control.sock")
	srv, err := ipc.NewServer(ctx, socket, backend, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	time.Sleep(20 * time.Millisecond)
	return socket
}

func dial(t *testing.T, socket string) *ipc.Client {
	t.Helper()
	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIPCServerClient(t *testing.T) {
	backend := &fakeBackend{}
	client := dial(t, startServer(t, backend))

	resp, err := client.PlaylistEvent(json.RawMessage(`{"name":"Show","size":3}`), "playing", "Main", 1)
	if err != nil {
		t.Fatalf("PlaylistEvent RPC failed: %v", err)
	}
	if resp.Bridges != 2 {
		t.Fatalf("expected 2 bridges, got %d", resp.Bridges)
	}
	if _, err := client.MediaOpen("a.mp4"); err != nil {
		t.Fatalf("MediaOpen RPC failed: %v", err)
	}
	if _, err := client.MediaSyncStart("a.mp4"); err != nil {
		t.Fatalf("MediaSyncStart RPC failed: %v", err)
	}
	if _, err := client.MediaSync("a.mp4", 2.5); err != nil {
		t.Fatalf("MediaSync RPC failed: %v", err)
	}
	if _, err := client.MediaSyncStop("a.mp4"); err != nil {
		t.Fatalf("MediaSyncStop RPC failed: %v", err)
	}

	backend.mu.Lock()
	calls := strings.Join(backend.calls, ",")
	size := backend.playlist["size"]
	backend.mu.Unlock()
	if calls != "playlist:playing:Main,open:a.mp4,start:a.mp4,sync:a.mp4,stop:a.mp4" {
		t.Fatalf("unexpected calls %s", calls)
	}
	if n, ok := size.(json.Number); !ok || n.String() != "3" {
		t.Fatalf("expected size as json.Number 3, got %#v", size)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.PID == 0 || !status.MultiSyncEnabled || len(status.Bridges) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Bridges[0].ID != "b-1" || status.Bridges[0].LastBucket != 4 {
		t.Fatalf("unexpected bridge status %+v", status.Bridges[0])
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	backend.mu.Lock()
	stopped := backend.stopped
	backend.mu.Unlock()
	if !stop.Stopped || !stopped {
		t.Fatal("expected backend shutdown")
	}
}

func TestPlaylistEventRejectsNonObject(t *testing.T) {
	backend := &fakeBackend{}
	client := dial(t, startServer(t, backend))

	if _, err := client.PlaylistEvent(json.RawMessage(`[1,2]`), "start", "Main", 0); err == nil {
		t.Fatal("expected error for array playlist")
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.calls) != 0 {
		t.Fatalf("backend should not be called, got %v", backend.calls)
	}
}

func TestDecodePlaylist(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{raw: `{"name":"x","size":2}`},
		{raw: ``, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: `"text"`, wantErr: true},
	}
	for _, tt := range tests {
		_, err := ipc.DecodePlaylist(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("DecodePlaylist(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
	}
}

func TestNewServerRequiresBackend(t *testing.T) {
	if _, err := ipc.NewServer(context.Background(), "/tmp/unused.sock", nil, nil); err == nil {
		t.Fatal("expected error without backend")
	}
}
