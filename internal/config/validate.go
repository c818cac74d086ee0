package config

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIO(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIO() error {
	if c.IO.bufferBytes < minBufferBytes {
		return fmt.Errorf("io.buffer_size must be at least %s", humanize.IBytes(minBufferBytes))
	}
	if c.IO.Workers < 1 || c.IO.Workers > maxWorkers {
		return fmt.Errorf("io.workers must be between 1 and %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateSplit() error {
	if c.Split.MinDigits < 1 || c.Split.MinDigits > maxMinDigits {
		return fmt.Errorf("split.min_digits must be between 1 and %d", maxMinDigits)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
