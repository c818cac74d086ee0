package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"pktcore/internal/manifest"
)

// PartSet describes a part set written by WritePartSet.
type PartSet struct {
	Dir          string
	ManifestPath string
	PartPaths    []string
	Content      []byte
	Manifest     *manifest.Manifest
}

// WritePartSet writes content into dir as parts of the given lengths, named
// after base, together with a matching manifest. It produces the on-disk
// contract directly so combiner tests do not depend on the splitter.
func WritePartSet(t testing.TB, dir, base string, content []byte, lengths ...uint64) *PartSet {
	t.Helper()

	var total uint64
	for _, l := range lengths {
		total += l
	}
	if total != uint64(len(content)) {
		t.Fatalf("part lengths sum to %d, content has %d bytes", total, len(content))
	}

	digits := manifest.DigitsFor(uint32(len(lengths)), manifest.MinDigits)
	m := &manifest.Manifest{
		Version:       manifest.FormatVersion,
		SplitID:       uuid.NewString(),
		OriginalName:  base,
		TotalLength:   total,
		PartCount:     uint32(len(lengths)),
		Algorithm:     manifest.Algorithm,
		WholeChecksum: manifest.Sum(content),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	set := &PartSet{Dir: dir, Content: content, Manifest: m}

	var offset uint64
	for i, l := range lengths {
		name := manifest.PartName(base, uint32(i), digits)
		data := content[offset : offset+l]
		path := filepath.Join(dir, name)
		WriteBytes(t, path, data)
		m.Parts = append(m.Parts, manifest.Part{
			Index:    uint32(i),
			File:     name,
			Offset:   offset,
			Length:   l,
			Checksum: manifest.Sum(data),
		})
		set.PartPaths = append(set.PartPaths, path)
		offset += l
	}

	set.ManifestPath = filepath.Join(dir, manifest.ManifestName(base))
	if err := m.Write(set.ManifestPath); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return set
}
