package config

const (
	defaultConfigPath        = "~/.config/pulsebridge/config.toml"
	defaultSocketPath        = "/tmp/PULSE"
	defaultPlaylistLogPath   = "/tmp/fpp_pulsemesh_playlist.json"
	defaultErrorLogThreshold = 10
	defaultMultiSyncEnabled  = true
	defaultStateDir          = "~/.local/share/pulsebridge"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	// maxSocketPathLen is sizeof(sockaddr_un.sun_path) on Linux minus the
	// terminating NUL.
	maxSocketPathLen = 107
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Bridge: Bridge{
			SocketPath:        defaultSocketPath,
			PlaylistLogPath:   defaultPlaylistLogPath,
			ErrorLogThreshold: defaultErrorLogThreshold,
			MultiSyncEnabled:  defaultMultiSyncEnabled,
		},
		Daemon: Daemon{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
