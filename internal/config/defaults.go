package config

const (
	defaultBufferSize     = "1MiB"
	defaultBufferBytes    = 1 << 20
	minBufferBytes        = 4 << 10
	maxBufferBytes        = 256 << 20
	defaultWorkers        = 4
	maxWorkers            = 64
	defaultMinDigits      = 3
	maxMinDigits          = 9
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultCheckFreeSpace = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LockDir: defaultLockDir(),
		},
		IO: IO{
			BufferSize: defaultBufferSize,
			Workers:    defaultWorkers,
		},
		Split: Split{
			MinDigits:      defaultMinDigits,
			CheckFreeSpace: defaultCheckFreeSpace,
		},
		Combine: Combine{
			CheckFreeSpace: defaultCheckFreeSpace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
