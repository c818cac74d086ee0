package fileutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/zeebo/blake3"
)

// ErrLocked is returned when another invocation already holds the lock for
// the same target.
var ErrLocked = errors.New("target is locked by another invocation")

// TargetLock serializes split or combine invocations that would write the
// same final artifact. Lock files live in a separate directory so the target
// directory only ever contains parts, manifests, and outputs.
type TargetLock struct {
	path string
	lock *flock.Flock
}

// LockTarget acquires a non-blocking advisory lock keyed by the absolute path
// of target. lockDir defaults to os.TempDir when empty.
func LockTarget(lockDir, target string) (*TargetLock, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolve lock target: %w", err)
	}
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory %q: %w", lockDir, err)
	}
	sum := blake3.Sum256([]byte(abs))
	path := filepath.Join(lockDir, "pktcore-"+hex.EncodeToString(sum[:8])+".lock")

	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, target)
	}
	return &TargetLock{path: path, lock: l}, nil
}

// Path returns the lock file location.
func (l *TargetLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Unlock releases the lock. It is safe to call on a nil lock.
func (l *TargetLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
