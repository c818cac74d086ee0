package combiner

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pktcore/internal/failures"
	"pktcore/internal/manifest"
)

// Mode says how the parts of a set were located.
type Mode string

const (
	// ModeManifest means a manifest supplied order, lengths and digests.
	ModeManifest Mode = "manifest"
	// ModePattern means order was inferred from part file names alone.
	ModePattern Mode = "pattern"
)

// ResolvedPart is one part file scheduled for reassembly.
type ResolvedPart struct {
	Index  uint32
	Path   string
	Length uint64
	// Checksum is only meaningful when HasChecksum is set (manifest mode).
	Checksum    manifest.Digest
	HasChecksum bool
}

// PartSet is the ordered list of parts a locator resolved to.
type PartSet struct {
	Mode         Mode
	Manifest     *manifest.Manifest
	ManifestPath string
	Base         string
	Parts        []ResolvedPart
}

// TotalLength sums the expected lengths of every part.
func (s *PartSet) TotalLength() uint64 {
	var total uint64
	for _, p := range s.Parts {
		total += p.Length
	}
	return total
}

// Paths returns the part paths in index order.
func (s *PartSet) Paths() []string {
	paths := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		paths[i] = p.Path
	}
	return paths
}

// ResolveParts turns a manifest path, glob pattern, or bare prefix into an
// ordered part set. Manifest sets report a missing part file as
// MissingPart(index); pattern sets report ordinal gaps the same way.
func ResolveParts(locator string) (*PartSet, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "resolve parts", "a manifest path or part pattern is required", nil)
	}
	if isManifestLocator(locator) {
		return resolveManifest(locator)
	}
	return resolvePattern(locator)
}

func isManifestLocator(locator string) bool {
	if strings.HasSuffix(locator, manifest.Extension) {
		return true
	}
	if hasGlobMeta(locator) {
		return false
	}
	info, err := os.Stat(locator)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if _, _, _, ok := manifest.ParsePartName(filepath.Base(locator)); ok {
		return false
	}
	// A source that has parts beside it is a prefix, whatever its content.
	if hasPartFiles(locator) {
		return false
	}
	return looksLikeJSON(locator)
}

func hasPartFiles(prefix string) bool {
	matches, err := filepath.Glob(prefix + ".part*")
	if err != nil {
		return false
	}
	for _, match := range matches {
		if _, _, _, ok := manifest.ParsePartName(filepath.Base(match)); ok {
			return true
		}
	}
	return false
}

// looksLikeJSON peeks at the first non-space byte of path.
func looksLikeJSON(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return false
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b == '{'
		}
	}
}

func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, failures.ErrUnsupportedManifestVersion) {
			return nil, err
		}
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "load manifest", path, err)
	}
	return m, nil
}

// partSetFromManifest lists the parts next to the manifest by their recorded
// file names.
func partSetFromManifest(m *manifest.Manifest, manifestPath string) *PartSet {
	dir := filepath.Dir(manifestPath)
	set := &PartSet{
		Mode:         ModeManifest,
		Manifest:     m,
		ManifestPath: manifestPath,
		Base:         m.OriginalName,
		Parts:        make([]ResolvedPart, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		set.Parts = append(set.Parts, ResolvedPart{
			Index:       p.Index,
			Path:        filepath.Join(dir, p.File),
			Length:      p.Length,
			Checksum:    p.Checksum,
			HasChecksum: true,
		})
	}
	return set
}

func resolveManifest(path string) (*PartSet, error) {
	m, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	set := partSetFromManifest(m, path)
	for _, p := range set.Parts {
		info, err := os.Stat(p.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, failures.MissingPart(p.Index, p.Path)
		case err != nil:
			return nil, failures.Wrap(failures.ErrSourceUnavailable, "stat part", p.Path, err)
		case !info.Mode().IsRegular():
			return nil, failures.CorruptPart(p.Index, p.Path, errors.New("not a regular file"))
		case uint64(info.Size()) != p.Length:
			return nil, failures.CorruptPart(p.Index, p.Path, fmt.Errorf("size %d, manifest records %d", info.Size(), p.Length))
		}
	}
	return set, nil
}

func resolvePattern(locator string) (*PartSet, error) {
	pattern := locator
	if !hasGlobMeta(locator) {
		pattern = locator + ".part*"
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "resolve parts", fmt.Sprintf("pattern %q", pattern), err)
	}
	slices.Sort(matches)

	type candidate struct {
		path  string
		index uint32
	}
	var (
		base       string
		candidates []candidate
	)
	for _, match := range matches {
		name := filepath.Base(match)
		b, index, _, ok := manifest.ParsePartName(name)
		if !ok {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		key := filepath.Join(filepath.Dir(match), b)
		if base == "" {
			base = key
		} else if key != base {
			return nil, failures.Wrap(failures.ErrSourceUnavailable, "resolve parts",
				fmt.Sprintf("pattern %q matches parts of more than one file (%s, %s)", pattern, base, key), nil)
		}
		candidates = append(candidates, candidate{path: match, index: index})
	}
	if len(candidates) == 0 {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "resolve parts", fmt.Sprintf("no part files match %q", pattern), nil)
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int { return cmp.Compare(a.index, b.index) })

	// A readable sibling manifest fixes the part count even in pattern mode:
	// ordinals past it are leftovers, and a short set is missing its tail.
	expected := -1
	if m, err := manifest.Load(base + manifest.Extension); err == nil {
		expected = int(m.PartCount)
		candidates = slices.DeleteFunc(candidates, func(c candidate) bool { return c.index >= m.PartCount })
	}

	set := &PartSet{Mode: ModePattern, Base: filepath.Base(base), Parts: make([]ResolvedPart, 0, len(candidates))}
	for i, c := range candidates {
		want := uint32(i)
		switch {
		case c.index > want:
			return nil, failures.MissingPart(want, manifest.PartName(base, want, 0))
		case c.index < want:
			return nil, failures.CorruptPart(c.index, c.path, errors.New("duplicate or out of order ordinal"))
		}
		info, err := os.Stat(c.path)
		if err != nil {
			return nil, failures.MissingPart(c.index, c.path)
		}
		set.Parts = append(set.Parts, ResolvedPart{Index: c.index, Path: c.path, Length: uint64(info.Size())})
	}
	if expected >= 0 && len(set.Parts) < expected {
		want := uint32(len(set.Parts))
		return nil, failures.MissingPart(want, manifest.PartName(base, want, manifest.DigitsFor(uint32(expected), 0)))
	}
	return set, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, `*?[\`)
}
