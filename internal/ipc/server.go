package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"pulsebridge/internal/bridge"
	"pulsebridge/internal/logging"
)

// Backend receives dispatched callbacks and reports daemon state.
type Backend interface {
	PlaylistEvent(doc bridge.Playlist, action, section string, item int)
	MediaOpen(filename string)
	MediaSyncStart(filename string)
	MediaSyncStop(filename string)
	MediaSync(filename string, seconds float64)
	Len() int
	Bridges() []bridge.Status
	MultiSyncEnabled() bool
	Shutdown()
}

// Server exposes the daemon via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// closeGrace bounds how long Close waits for in-flight calls before
// dropping open client connections.
const closeGrace = 500 * time.Millisecond

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("ipc server requires backend")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{
		backend:   backend,
		logger:    logger,
		socket:    path,
		startedAt: time.Now(),
	}
	if err := rpcServer.RegisterName("Bridge", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the control socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.Socket(s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(closeGrace):
		s.connMu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.connMu.Unlock()
		<-drained
	}
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.Socket(s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

type service struct {
	backend   Backend
	logger    *slog.Logger
	socket    string
	startedAt time.Time
}

// DecodePlaylist decodes a raw playlist document, keeping numbers as
// json.Number.
func DecodePlaylist(raw json.RawMessage) (bridge.Playlist, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("playlist document is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc bridge.Playlist
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("playlist must be a JSON object: %w", err)
	}
	if doc == nil {
		return nil, errors.New("playlist must be a JSON object")
	}
	return doc, nil
}

func (s *service) PlaylistEvent(req PlaylistEventRequest, resp *DispatchResponse) error {
	doc, err := DecodePlaylist(req.Playlist)
	if err != nil {
		return err
	}
	s.logger.Debug("playlist event received", logging.String("action", req.Action))
	s.backend.PlaylistEvent(doc, req.Action, req.Section, req.Item)
	resp.Bridges = s.backend.Len()
	return nil
}

func (s *service) MediaOpen(req MediaRequest, resp *DispatchResponse) error {
	s.backend.MediaOpen(req.Filename)
	resp.Bridges = s.backend.Len()
	return nil
}

func (s *service) MediaSyncStart(req MediaRequest, resp *DispatchResponse) error {
	s.backend.MediaSyncStart(req.Filename)
	resp.Bridges = s.backend.Len()
	return nil
}

func (s *service) MediaSyncStop(req MediaRequest, resp *DispatchResponse) error {
	s.backend.MediaSyncStop(req.Filename)
	resp.Bridges = s.backend.Len()
	return nil
}

func (s *service) MediaSync(req MediaSyncRequest, resp *DispatchResponse) error {
	s.backend.MediaSync(req.Filename, req.Seconds)
	resp.Bridges = s.backend.Len()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.PID = os.Getpid()
	resp.StartedAt = s.startedAt.Format(time.RFC3339)
	resp.MultiSyncEnabled = s.backend.MultiSyncEnabled()
	resp.ControlSocket = s.socket
	resp.Bridges = s.backend.Bridges()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	s.backend.Shutdown()
	resp.Stopped = true
	return nil
}
