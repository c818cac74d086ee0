package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Extension is the suffix of manifest sidecar files.
	Extension = ".manifest"
	// partMarker separates the source base name from the ordinal.
	partMarker = ".part"
	// MinDigits is the default zero padding width for part ordinals.
	MinDigits = 3
)

// ManifestName returns the sidecar file name for a source base name.
func ManifestName(base string) string {
	return base + Extension
}

// PartName returns the deterministic file name of part index for base.
func PartName(base string, index uint32, digits int) string {
	if digits <= 0 {
		digits = MinDigits
	}
	return fmt.Sprintf("%s%s%0*d", base, partMarker, digits, index)
}

// DigitsFor returns the zero padding width that keeps count ordinals sorting
// lexicographically in index order, never narrower than minDigits.
func DigitsFor(count uint32, minDigits int) int {
	if minDigits <= 0 {
		minDigits = MinDigits
	}
	width := 1
	if count > 1 {
		width = len(strconv.FormatUint(uint64(count-1), 10))
	}
	if width < minDigits {
		return minDigits
	}
	return width
}

// ParsePartName splits a part file name into its source base name, ordinal,
// and padding width. ok is false when name does not follow the part naming
// scheme.
func ParsePartName(name string) (base string, index uint32, digits int, ok bool) {
	pos := strings.LastIndex(name, partMarker)
	if pos <= 0 {
		return "", 0, 0, false
	}
	ordinal := name[pos+len(partMarker):]
	if ordinal == "" {
		return "", 0, 0, false
	}
	for _, r := range ordinal {
		if r < '0' || r > '9' {
			return "", 0, 0, false
		}
	}
	value, err := strconv.ParseUint(ordinal, 10, 32)
	if err != nil {
		return "", 0, 0, false
	}
	return name[:pos], uint32(value), len(ordinal), true
}

// BaseFromManifestName strips the manifest extension. ok is false when name
// is not a manifest file name.
func BaseFromManifestName(name string) (string, bool) {
	if !strings.HasSuffix(name, Extension) || len(name) == len(Extension) {
		return "", false
	}
	return strings.TrimSuffix(name, Extension), true
}
