package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LockDir string `toml:"lock_dir"`
	LogDir  string `toml:"log_dir"`
}

// IO contains buffer and concurrency settings shared by split and combine.
type IO struct {
	// BufferSize is a human readable byte size such as "1MiB" or "256KB".
	BufferSize string `toml:"buffer_size"`
	// Workers bounds the parallel part verifier.
	Workers int `toml:"workers"`

	bufferBytes int
}

// Split contains configuration for the splitter.
type Split struct {
	// MinDigits is the minimum zero padding of part ordinals (part000).
	MinDigits int `toml:"min_digits"`
	// CheckFreeSpace refuses to start when the output filesystem cannot hold
	// every part.
	CheckFreeSpace bool `toml:"check_free_space"`
}

// Combine contains configuration for the combiner.
type Combine struct {
	// Preverify checks every part in parallel before streaming output.
	Preverify bool `toml:"preverify"`
	// CheckFreeSpace refuses to start when the output filesystem cannot hold
	// the reconstructed file.
	CheckFreeSpace bool `toml:"check_free_space"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the decoded pktcore.toml. Every section is optional; Load fills
// gaps from Default and the PKTCORE_* environment overrides.
type Config struct {
	Paths   Paths   `toml:"paths"`
	IO      IO      `toml:"io"`
	Split   Split   `toml:"split"`
	Combine Combine `toml:"combine"`
	Logging Logging `toml:"logging"`
}

const (
	userConfigFile    = "~/.config/pktcore/config.toml"
	projectConfigFile = "pktcore.toml"
)

// DefaultConfigPath is the per-user config file, expanded to an absolute path.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigFile)
}

// Load reads the config at path, or searches the user and project locations
// when path is empty. It returns the config, the file it came from, and
// whether that file existed. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	source, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if found {
		if err := decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, found, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path as given. Without one, the user file wins
// over ./pktcore.toml; if neither exists the user path is reported.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		p, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(p); {
		case err == nil:
			return p, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return p, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	user, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	project, err := filepath.Abs(projectConfigFile)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{user, project} {
		if isFile(candidate) {
			return candidate, true, nil
		}
	}
	return user, false, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// EnsureDirectories creates the lock directory, plus the log directory when
// one is configured.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LockDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BufferBytes is io.buffer_size in bytes, or the default before normalization.
func (c *Config) BufferBytes() int {
	if c.IO.bufferBytes > 0 {
		return c.IO.bufferBytes
	}
	return defaultBufferBytes
}

// ExpandPath applies the same rules Load uses for path settings: a leading
// ~ becomes the home directory and the result is made absolute.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = home + p[1:]
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// defaultLockDir prefers the per-session runtime directory so stale locks do
// not survive a reboot.
func defaultLockDir() string {
	if runtime := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtime != "" {
		return filepath.Join(runtime, "pktcore")
	}
	return filepath.Join(os.TempDir(), "pktcore-locks")
}

// CreateSample writes the annotated sample config to path, creating its
// directory as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
