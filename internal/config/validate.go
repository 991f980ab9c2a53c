package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The datagram socket path
// length is not checked here: an oversized path disables the bridge at
// startup instead of preventing the daemon from running.
func (c *Config) Validate() error {
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBridge() error {
	if strings.TrimSpace(c.Bridge.SocketPath) == "" {
		return errors.New("bridge.socket_path must be set")
	}
	if strings.TrimSpace(c.Bridge.PlaylistLogPath) == "" {
		return errors.New("bridge.playlist_log_path must be set")
	}
	if c.Bridge.ErrorLogThreshold < 0 {
		return fmt.Errorf("bridge.error_log_threshold must be positive, got %d", c.Bridge.ErrorLogThreshold)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if strings.TrimSpace(c.Daemon.StateDir) == "" {
		return errors.New("daemon.state_dir must be set")
	}
	if n := len(c.ControlSocketPath()); n > maxSocketPathLen {
		return fmt.Errorf("daemon.state_dir is too long for a control socket (%d bytes, max %d)", n, maxSocketPathLen)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
