package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"pulsebridge/internal/bridge"
	"pulsebridge/internal/config"
	"pulsebridge/internal/ipc"
	"pulsebridge/internal/logging"
	"pulsebridge/internal/multisync"
	"pulsebridge/internal/transport"
)

// ErrAlreadyRunning reports that another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("another pulsebridge daemon instance is already running")

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// Bridges is the number of bridge instances registered with the
	// dispatcher. Zero means one.
	Bridges int
	// Logger replaces the config-derived logger.
	Logger *slog.Logger
	// TransportOptions are applied to every bridge transport.
	TransportOptions []transport.Option
}

// Runtime is the state served over the control socket while Run is active.
type Runtime struct {
	*multisync.Dispatcher

	cfg     *config.Config
	bridges []*bridge.Bridge
	cancel  context.CancelFunc
}

// Bridges reports the status of every registered bridge.
func (r *Runtime) Bridges() []bridge.Status {
	out := make([]bridge.Status, 0, len(r.bridges))
	for _, b := range r.bridges {
		out = append(out, b.Status())
	}
	return out
}

// MultiSyncEnabled reports the configured host multi-sync setting.
func (r *Runtime) MultiSyncEnabled() bool {
	return r.cfg.Bridge.MultiSyncEnabled
}

// Shutdown stops Run.
func (r *Runtime) Shutdown() {
	r.cancel()
}

// Run starts the bridge daemon and blocks until the context is canceled, a
// termination signal arrives, or a client requests shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	multisync.WarnIfDisabled(logger, cfg.Bridge.MultiSyncEnabled)

	rt := &Runtime{
		Dispatcher: multisync.NewDispatcher(logger),
		cfg:        cfg,
		cancel:     cancel,
	}
	count := opts.Bridges
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		bopts := bridge.OptionsFromConfig(cfg)
		bopts.TransportOptions = opts.TransportOptions
		b := bridge.New(bopts, logger)
		// Open failures leave the bridge in disabled mode and are already logged.
		_ = b.Open()
		rt.bridges = append(rt.bridges, b)
		rt.Add(b)
	}
	defer func() {
		for _, b := range rt.bridges {
			rt.Remove(b.ID())
			if err := b.Close(); err != nil {
				logger.Warn("failed to close bridge", logging.BridgeID(b.ID()), logging.Error(err))
			}
		}
	}()

	ipcServer, err := ipc.NewServer(runCtx, cfg.ControlSocketPath(), rt, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	startedAt := time.Now()
	logger.Info("pulsebridge daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.Int("bridges", count),
		logging.Bool("multisync_enabled", cfg.Bridge.MultiSyncEnabled),
		logging.String("control_socket", cfg.ControlSocketPath()),
		logging.String("lock", cfg.LockPath()))

	<-runCtx.Done()
	logger.Info("pulsebridge daemon shutting down", logging.Duration("uptime", time.Since(startedAt).Round(time.Second)))
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	if opts.Logger != nil {
		return opts.Logger, nil
	}
	logCfg := *cfg
	if opts.LogLevel != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	return logging.NewFromConfig(&logCfg)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
