package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const tempPrefix = ".pktcore-"

// CreateTemp opens a hidden temporary file next to dst so a later Commit can
// rename it over dst without crossing filesystems.
func CreateTemp(dst string) (*os.File, error) {
	dir := filepath.Dir(dst)
	return os.CreateTemp(dir, tempPrefix+filepath.Base(dst)+".*.tmp")
}

// Commit flushes tmp to stable storage, closes it, and atomically renames it
// to dst. The temporary file is removed when any step fails.
func Commit(tmp *os.File, dst string) error {
	name := tmp.Name()
	if err := Seal(tmp); err != nil {
		return err
	}
	if err := Promote(name, dst); err != nil {
		return err
	}
	return SyncDir(filepath.Dir(dst))
}

// Seal flushes tmp to stable storage and closes it without renaming, for
// callers that promote several temporaries together once all are written.
// The temporary file is removed when either step fails.
func Seal(tmp *os.File) error {
	name := tmp.Name()
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// Promote renames a sealed temporary file over dst, removing the temporary
// when the rename fails.
func Promote(tmpPath, dst string) error {
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}

// Discard closes and removes a temporary file that will not be committed.
func Discard(tmp *os.File) {
	if tmp == nil {
		return
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place, so readers observe either the old content or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := CreateTemp(path)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		Discard(tmp)
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(mode); err != nil {
		Discard(tmp)
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	return Commit(tmp, path)
}

// RemoveFiles deletes every path, ignoring files that are already gone. It
// returns the first unexpected error after attempting all removals.
func RemoveFiles(paths ...string) error {
	var first error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && first == nil {
			first = err
		}
	}
	return first
}

// Exists reports whether path names an existing filesystem entry.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SyncDir flushes directory metadata so completed renames survive a crash.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	// Some filesystems reject fsync on directories; the rename already happened.
	_ = d.Sync()
	return nil
}
