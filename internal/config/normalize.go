package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIO(); err != nil {
		return err
	}
	c.normalizeSplit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("PKTCORE_LOCK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LockDir = value
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir()
	}
	if c.Paths.LockDir, err = expandPath(strings.TrimSpace(c.Paths.LockDir)); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIO() error {
	if value, ok := os.LookupEnv("PKTCORE_BUFFER_SIZE"); ok && strings.TrimSpace(value) != "" {
		c.IO.BufferSize = value
	}
	c.IO.BufferSize = strings.TrimSpace(c.IO.BufferSize)
	if c.IO.BufferSize == "" {
		c.IO.BufferSize = defaultBufferSize
	}
	size, err := humanize.ParseBytes(c.IO.BufferSize)
	if err != nil {
		return fmt.Errorf("io.buffer_size: %w", err)
	}
	if size > maxBufferBytes {
		return fmt.Errorf("io.buffer_size: %s exceeds %s", c.IO.BufferSize, humanize.IBytes(maxBufferBytes))
	}
	c.IO.bufferBytes = int(size)
	if c.IO.Workers <= 0 {
		c.IO.Workers = defaultWorkers
	}
	return nil
}

func (c *Config) normalizeSplit() {
	if c.Split.MinDigits <= 0 {
		c.Split.MinDigits = defaultMinDigits
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("PKTCORE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
