package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"pktcore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config whose lock directory is unique to the test, so
// parallel tests never contend for the same lock files.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.LockDir = filepath.Join(t.TempDir(), "locks")
	cfg.Split.CheckFreeSpace = false
	cfg.Combine.CheckFreeSpace = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers sets the parallel verifier width.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.IO.Workers = n
	}
}

// WithBufferSize sets the streaming buffer, e.g. "4KiB". It takes effect
// once the config is written with WriteConfig and loaded again.
func WithBufferSize(size string) ConfigOption {
	return func(c *config.Config) {
		c.IO.BufferSize = size
	}
}

// WriteConfig stores cfg as TOML in a temp file and returns its path, for
// commands that take --config.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pktcore.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
