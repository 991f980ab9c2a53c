package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pulsebridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The datagram socket and control socket live under a short directory so
// they fit sun_path regardless of the test temp root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := ShortSocketDir(t)
	cfgVal := config.Default()
	cfgVal.Bridge.SocketPath = filepath.Join(base, "pulse.sock")
	cfgVal.Bridge.PlaylistLogPath = filepath.Join(base, "playlist.json")
	cfgVal.Daemon.StateDir = filepath.Join(base, "state")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSanitizedFilenames enables filename sanitization on the test config.
func WithSanitizedFilenames() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bridge.SanitizeFilenames = true
	}
}

// WithErrorLogThreshold overrides the send-error log threshold.
func WithErrorLogThreshold(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bridge.ErrorLogThreshold = n
	}
}

// WithMultiSyncDisabled marks host multi-sync as disabled.
func WithMultiSyncDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bridge.MultiSyncEnabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.StateDir)
}

// ShortSocketDir creates a temp directory under os.TempDir with a short name.
// t.TempDir paths embed the test name and can exceed the 107-byte sun_path
// limit for Unix sockets.
func ShortSocketDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pb")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
