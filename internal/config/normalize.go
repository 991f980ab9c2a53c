package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeBridge(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeBridge() error {
	var err error
	if value, ok := os.LookupEnv("PULSEBRIDGE_SOCKET"); ok && strings.TrimSpace(value) != "" {
		c.Bridge.SocketPath = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("PULSEBRIDGE_PLAYLIST_LOG"); ok && strings.TrimSpace(value) != "" {
		c.Bridge.PlaylistLogPath = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Bridge.SocketPath) == "" {
		c.Bridge.SocketPath = defaultSocketPath
	}
	if c.Bridge.SocketPath, err = expandPath(strings.TrimSpace(c.Bridge.SocketPath)); err != nil {
		return fmt.Errorf("bridge.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Bridge.PlaylistLogPath) == "" {
		c.Bridge.PlaylistLogPath = defaultPlaylistLogPath
	}
	if c.Bridge.PlaylistLogPath, err = expandPath(strings.TrimSpace(c.Bridge.PlaylistLogPath)); err != nil {
		return fmt.Errorf("bridge.playlist_log_path: %w", err)
	}
	if c.Bridge.ErrorLogThreshold == 0 {
		c.Bridge.ErrorLogThreshold = defaultErrorLogThreshold
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error
	if strings.TrimSpace(c.Daemon.StateDir) == "" {
		c.Daemon.StateDir = defaultStateDir
	}
	if c.Daemon.StateDir, err = expandPath(c.Daemon.StateDir); err != nil {
		return fmt.Errorf("daemon.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	var err error
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
