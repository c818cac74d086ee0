package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// Pattern returns size bytes of a deterministic, position-dependent pattern
// so that reordered or duplicated ranges change the content.
func Pattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*31 + i/251) % 256)
	}
	return data
}

// WriteFile fills path with size bytes of Pattern and returns the content.
// A size of 0 creates an empty file.
func WriteFile(t testing.TB, path string, size int) []byte {
	t.Helper()
	data := Pattern(size)
	WriteBytes(t, path, data)
	return data
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// RequireSameContent fails unless the file at path holds exactly want.
func RequireSameContent(t testing.TB, path string, want []byte) {
	t.Helper()
	got := ReadFile(t, path)
	if !bytes.Equal(got, want) {
		t.Fatalf("%s: content differs (got %d bytes, want %d)", path, len(got), len(want))
	}
}

// FlipByte inverts one byte of the file at path in place.
func FlipByte(t testing.TB, path string, offset int) {
	t.Helper()
	data := ReadFile(t, path)
	if offset < 0 || offset >= len(data) {
		t.Fatalf("flip offset %d outside %s (%d bytes)", offset, path, len(data))
	}
	data[offset] ^= 0xFF
	WriteBytes(t, path, data)
}

// DirNames returns the sorted entry names of dir.
func DirNames(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names
}

// RequireDirNames fails unless dir contains exactly the named entries.
func RequireDirNames(t testing.TB, dir string, want ...string) {
	t.Helper()
	got := DirNames(t, dir)
	sorted := slices.Clone(want)
	slices.Sort(sorted)
	if !slices.Equal(got, sorted) {
		t.Fatalf("%s contains [%s], want [%s]", dir, strings.Join(got, " "), strings.Join(sorted, " "))
	}
}
