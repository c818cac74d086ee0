package splitter

import (
	"fmt"
	"math"

	"pktcore/internal/failures"
)

// Directive selects how a source is partitioned. Exactly one field is set.
type Directive struct {
	// Count is the number of parts to produce.
	Count uint64
	// MaxSize caps the length of every part; the count is derived from it.
	MaxSize uint64
}

// Range is one planned byte range of the source.
type Range struct {
	Index  uint32
	Offset uint64
	Length uint64
}

// DirectiveFromRequest converts the signed request fields into a Directive,
// rejecting negative, missing, or conflicting values.
func DirectiveFromRequest(parts int, maxPartSize int64) (Directive, error) {
	switch {
	case parts < 0:
		return Directive{}, failures.Wrap(failures.ErrInvalidPartitioning, "plan", fmt.Sprintf("part count %d is negative", parts), nil)
	case maxPartSize < 0:
		return Directive{}, failures.Wrap(failures.ErrInvalidPartitioning, "plan", fmt.Sprintf("max part size %d is negative", maxPartSize), nil)
	case parts > 0 && maxPartSize > 0:
		return Directive{}, failures.Wrap(failures.ErrInvalidPartitioning, "plan", "part count and max part size are mutually exclusive", nil)
	case parts == 0 && maxPartSize == 0:
		return Directive{}, failures.Wrap(failures.ErrInvalidPartitioning, "plan", "a part count or max part size is required", nil)
	}
	return Directive{Count: uint64(parts), MaxSize: uint64(maxPartSize)}, nil
}

// PartCount resolves the directive to a part count for a source of length
// bytes.
func (d Directive) PartCount(length uint64) (uint64, error) {
	switch {
	case d.Count > 0 && d.MaxSize > 0:
		return 0, failures.Wrap(failures.ErrInvalidPartitioning, "plan", "part count and max part size are mutually exclusive", nil)
	case d.Count > 0:
		return d.Count, nil
	case d.MaxSize > 0:
		if length == 0 {
			return 1, nil
		}
		return length/d.MaxSize + boolToUint(length%d.MaxSize != 0), nil
	default:
		return 0, failures.Wrap(failures.ErrInvalidPartitioning, "plan", "a part count or max part size is required", nil)
	}
}

// Plan computes balanced part boundaries for a source of length bytes. The
// first length mod n parts are one byte longer than the rest. More parts than
// bytes is rejected, except that an empty source yields a single empty part.
func Plan(length uint64, d Directive) ([]Range, error) {
	n, err := d.PartCount(length)
	if err != nil {
		return nil, err
	}
	if length == 0 && n != 1 {
		return nil, failures.Wrap(failures.ErrInvalidPartitioning, "plan", fmt.Sprintf("empty source can only be split into 1 part, not %d", n), nil)
	}
	if length > 0 && n > length {
		return nil, failures.Wrap(failures.ErrInvalidPartitioning, "plan", fmt.Sprintf("%d parts requested for %d bytes", n, length), nil)
	}
	if n > math.MaxUint32 {
		return nil, failures.Wrap(failures.ErrInvalidPartitioning, "plan", fmt.Sprintf("%d parts exceeds the supported maximum", n), nil)
	}

	base := length / n
	extra := length % n
	ranges := make([]Range, n)
	var offset uint64
	for i := range ranges {
		size := base
		if uint64(i) < extra {
			size++
		}
		ranges[i] = Range{Index: uint32(i), Offset: offset, Length: size}
		offset += size
	}
	return ranges, nil
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
