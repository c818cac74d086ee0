package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"pktcore/internal/failures"
	"pktcore/internal/fileutil"
)

// FormatVersion is the only manifest layout this build reads and writes.
const FormatVersion = 1

// maxManifestBytes bounds how much of a manifest file is read.
const maxManifestBytes = 64 << 20

// Part describes one contiguous byte range of the source persisted as its
// own file.
type Part struct {
	Index    uint32 `json:"index"`
	File     string `json:"file"`
	Offset   uint64 `json:"byte_offset"`
	Length   uint64 `json:"length"`
	Checksum Digest `json:"checksum"`
}

// End returns the exclusive end offset of the part.
func (p Part) End() uint64 {
	return p.Offset + p.Length
}

// Manifest is the reassembly contract written by the splitter.
type Manifest struct {
	Version       int       `json:"format_version"`
	SplitID       string    `json:"split_id"`
	OriginalName  string    `json:"original_name"`
	TotalLength   uint64    `json:"total_length"`
	PartCount     uint32    `json:"part_count"`
	Algorithm     string    `json:"algorithm"`
	WholeChecksum Digest    `json:"whole_checksum"`
	CreatedAt     time.Time `json:"created_at"`
	Parts         []Part    `json:"parts"`
}

type versionHeader struct {
	Version *int `json:"format_version"`
}

// NormalizeName returns the NFC form of a file's base name, the form stored
// in original_name.
func NormalizeName(path string) string {
	return norm.NFC.String(filepath.Base(path))
}

// Validate checks the structural invariants: contiguous indexes from zero,
// offsets equal to the running length sum, and lengths summing to
// TotalLength.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New("manifest is nil")
	}
	if m.Version != FormatVersion {
		return failures.Wrap(failures.ErrUnsupportedManifestVersion, "validate manifest", fmt.Sprintf("format_version %d", m.Version), nil)
	}
	if m.Algorithm != Algorithm {
		return fmt.Errorf("manifest algorithm %q not supported", m.Algorithm)
	}
	if err := checkFileName("original_name", m.OriginalName); err != nil {
		return err
	}
	if m.PartCount == 0 {
		return errors.New("manifest part_count must be at least 1")
	}
	if uint64(len(m.Parts)) != uint64(m.PartCount) {
		return fmt.Errorf("manifest lists %d parts but part_count is %d", len(m.Parts), m.PartCount)
	}
	var offset uint64
	for i, p := range m.Parts {
		if p.Index != uint32(i) {
			return fmt.Errorf("manifest part %d has index %d", i, p.Index)
		}
		if p.Offset != offset {
			return fmt.Errorf("manifest part %d starts at %d, want %d", i, p.Offset, offset)
		}
		if err := checkFileName(fmt.Sprintf("part %d file", i), p.File); err != nil {
			return err
		}
		offset += p.Length
	}
	if offset != m.TotalLength {
		return fmt.Errorf("manifest parts cover %d bytes but total_length is %d", offset, m.TotalLength)
	}
	return nil
}

// Encode writes m as indented JSON.
func (m *Manifest) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Decode reads a manifest, rejecting unknown format versions before the rest
// of the layout is interpreted, then validates the invariants.
func Decode(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxManifestBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(data) > maxManifestBytes {
		return nil, fmt.Errorf("manifest exceeds %d bytes", maxManifestBytes)
	}

	var header versionHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if header.Version == nil {
		return nil, failures.Wrap(failures.ErrUnsupportedManifestVersion, "decode manifest", "format_version missing", nil)
	}
	if *header.Version != FormatVersion {
		return nil, failures.Wrap(failures.ErrUnsupportedManifestVersion, "decode manifest", fmt.Sprintf("format_version %d", *header.Version), nil)
	}

	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load opens and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Write validates m and stores it atomically at path.
func (m *Manifest) Write(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// PartLengths returns the recorded length of every part in index order.
func (m *Manifest) PartLengths() []uint64 {
	lengths := make([]uint64, len(m.Parts))
	for i, p := range m.Parts {
		lengths[i] = p.Length
	}
	return lengths
}

// checkFileName rejects names that would let a manifest address files outside
// its own directory.
func checkFileName(field, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("manifest %s is empty", field)
	case name == "." || name == "..":
		return fmt.Errorf("manifest %s %q is not a file name", field, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("manifest %s %q must not contain path separators", field, name)
	}
	return nil
}
