// Package daemonctl launches, probes, and stops a background pulsebridge
// daemon on behalf of the CLI.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pulsebridge/internal/config"
	"pulsebridge/internal/ipc"
)

// ErrDaemonNotRunning indicates nothing answers on the control socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

const defaultPollInterval = 50 * time.Millisecond

// LaunchOptions are forwarded to the background `run` command.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
	Bridges    int
}

// LaunchArgs returns the argument vector for a background `run`.
func LaunchArgs(opts LaunchOptions) []string {
	args := []string{"run"}
	if v := strings.TrimSpace(opts.ConfigPath); v != "" {
		args = append(args, "--config", v)
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		args = append(args, "--log-level", v)
	}
	if opts.Bridges > 1 {
		args = append(args, "--bridges", strconv.Itoa(opts.Bridges))
	}
	return args
}

// Launch spawns executable in its own session and does not wait for it.
func Launch(executable string, opts LaunchOptions) error {
	if strings.TrimSpace(executable) == "" {
		return errors.New("launch daemon: executable path is empty")
	}
	cmd := exec.Command(executable, LaunchArgs(opts)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return cmd.Process.Release()
}

// Controller drives one daemon identified by its control socket. PIDPath and
// LockPath are only needed for forced termination.
type Controller struct {
	SocketPath string
	PIDPath    string
	LockPath   string
	Poll       time.Duration
}

// NewController builds a controller for socketPath. cfg may be nil, in which
// case the daemon can be asked to stop but not killed.
func NewController(socketPath string, cfg *config.Config) *Controller {
	c := &Controller{SocketPath: socketPath, Poll: defaultPollInterval}
	if cfg != nil {
		c.PIDPath = cfg.PIDPath()
		c.LockPath = cfg.LockPath()
	}
	return c
}

// Probe reports whether a daemon answers and its pid.
type Probe struct {
	Running bool
	PID     int
}

func (c *Controller) Probe() (Probe, error) {
	client, err := ipc.Dial(c.SocketPath)
	if err != nil {
		if unreachable(err) {
			return Probe{}, nil
		}
		return Probe{}, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return Probe{Running: true}, err
	}
	probe := Probe{Running: true}
	if status != nil {
		probe.PID = status.PID
	}
	return probe, nil
}

// StartResult reports whether Start launched a process.
type StartResult struct {
	Launched bool
	PID      int
}

// Start launches executable unless a daemon already answers, then waits
// until the control socket accepts connections or ctx ends.
func (c *Controller) Start(ctx context.Context, executable string, opts LaunchOptions) (StartResult, error) {
	probe, err := c.Probe()
	if err == nil && probe.Running {
		return StartResult{PID: probe.PID}, nil
	}
	if err := Launch(executable, opts); err != nil {
		return StartResult{}, err
	}
	client, err := c.awaitClient(ctx)
	if err != nil {
		return StartResult{}, fmt.Errorf("daemon failed to start: %w", err)
	}
	defer client.Close()
	result := StartResult{Launched: true}
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// StopResult reports how the daemon went away.
type StopResult struct {
	Acknowledged bool
	Killed       bool
	PID          int
}

// Stop asks the daemon to shut down and kills it if the control socket still
// answers after grace.
func (c *Controller) Stop(ctx context.Context, grace time.Duration) (StopResult, error) {
	client, err := ipc.Dial(c.SocketPath)
	if err != nil {
		if unreachable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, err := client.Status(); err == nil && status != nil {
		result.PID = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result.Acknowledged = resp != nil && resp.Stopped

	waitCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if c.awaitGone(waitCtx) == nil {
		return result, nil
	}

	pid, err := c.kill(result.PID)
	if err != nil {
		return result, fmt.Errorf("daemon still running after %s: %w", grace, err)
	}
	_ = os.Remove(c.SocketPath)
	result.Killed = true
	result.PID = pid
	return result, nil
}

func (c *Controller) awaitClient(ctx context.Context) (*ipc.Client, error) {
	var lastErr error
	for {
		client, err := ipc.Dial(c.SocketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if err := c.sleep(ctx); err != nil {
			return nil, errors.Join(err, lastErr)
		}
	}
}

func (c *Controller) awaitGone(ctx context.Context) error {
	for {
		client, err := ipc.Dial(c.SocketPath)
		if err != nil && unreachable(err) {
			return nil
		}
		if client != nil {
			_ = client.Close()
		}
		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) sleep(ctx context.Context) error {
	poll := c.Poll
	if poll <= 0 {
		poll = defaultPollInterval
	}
	timer := time.NewTimer(poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// kill sends SIGKILL to the pid recorded in the pid file, or fallbackPID when
// the file is missing, and removes the pid and lock files.
func (c *Controller) kill(fallbackPID int) (int, error) {
	if c.PIDPath == "" {
		return 0, errors.New("no pid file configured")
	}
	pid, err := readPID(c.PIDPath)
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		pid = fallbackPID
	}
	switch {
	case pid <= 0:
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", c.PIDPath)
	case pid == os.Getpid():
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(c.PIDPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pid, fmt.Errorf("remove pid file: %w", err)
	}
	if c.LockPath != "" {
		_ = os.Remove(c.LockPath)
	}
	return pid, nil
}

// readPID returns 0 without error when the file is absent or unparsable.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid < 0 {
		return 0, nil
	}
	return pid, nil
}

func unreachable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
