package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"pulsebridge/internal/config"
	"pulsebridge/internal/daemonrun"
	"pulsebridge/internal/ipc"
	"pulsebridge/internal/logging"
	"pulsebridge/internal/testsupport"
	"pulsebridge/internal/transport"
)

type recordingSocket struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSocket) SendTo(p []byte, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, string(p))
	return len(p), nil
}

func (r *recordingSocket) Close() error { return nil }

func (r *recordingSocket) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type cliTestEnv struct {
	cfg        *config.Config
	socket     *recordingSocket
	socketPath string
	configPath string
	done       chan error
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	sock := &recordingSocket{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{
			Logger: logging.NewNop(),
			TransportOptions: []transport.Option{transport.WithSocketFactory(
				func() (transport.Socket, error) { return sock, nil },
				func(string) error { return nil },
			)},
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	env := &cliTestEnv{
		cfg:        cfg,
		socket:     sock,
		socketPath: cfg.ControlSocketPath(),
		configPath: configPath,
		done:       done,
	}
	waitFor(t, 3*time.Second, func() bool {
		client, err := ipc.Dial(env.socketPath)
		if err != nil {
			return false
		}
		client.Close()
		return true
	})
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
