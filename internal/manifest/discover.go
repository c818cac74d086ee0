package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Entry is one manifest found by Discover. Err is set when the file could not
// be loaded; Manifest is nil in that case.
type Entry struct {
	Path     string
	Manifest *Manifest
	Err      error
}

// Discover loads every *.manifest file directly inside dir, sorted by name.
// Unreadable or invalid manifests are returned with Err set rather than
// failing the scan.
func Discover(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var found []Entry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, Extension) || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		m, err := Load(path)
		found = append(found, Entry{Path: path, Manifest: m, Err: err})
	}
	slices.SortFunc(found, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return found, nil
}
