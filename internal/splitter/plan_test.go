package splitter

import (
	"errors"
	"testing"

	"pktcore/internal/failures"
)

func lengthsOf(ranges []Range) []uint64 {
	out := make([]uint64, len(ranges))
	for i, r := range ranges {
		out[i] = r.Length
	}
	return out
}

func TestPlanBalanced(t *testing.T) {
	tests := []struct {
		name   string
		length uint64
		d      Directive
		want   []uint64
	}{
		{"ten into three", 10, Directive{Count: 3}, []uint64{4, 3, 3}},
		{"even", 12, Directive{Count: 4}, []uint64{3, 3, 3, 3}},
		{"one byte per part", 3, Directive{Count: 3}, []uint64{1, 1, 1}},
		{"single part", 7, Directive{Count: 1}, []uint64{7}},
		{"empty source", 0, Directive{Count: 1}, []uint64{0}},
		{"empty source by size", 0, Directive{MaxSize: 4}, []uint64{0}},
		{"size rounds up", 10, Directive{MaxSize: 4}, []uint64{4, 3, 3}},
		{"size exact", 8, Directive{MaxSize: 4}, []uint64{4, 4}},
		{"size larger than source", 5, Directive{MaxSize: 100}, []uint64{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, err := Plan(tt.length, tt.d)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			got := lengthsOf(ranges)
			if len(got) != len(tt.want) {
				t.Fatalf("lengths = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("lengths = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPlanInvariants(t *testing.T) {
	for _, length := range []uint64{1, 2, 17, 1000, 1 << 20, 1<<20 + 7} {
		for _, n := range []uint64{1, 2, 3, 7, 16} {
			if n > length {
				continue
			}
			ranges, err := Plan(length, Directive{Count: n})
			if err != nil {
				t.Fatalf("Plan(%d, %d): %v", length, n, err)
			}
			var offset, minLen, maxLen uint64
			minLen = ^uint64(0)
			for i, r := range ranges {
				if r.Index != uint32(i) || r.Offset != offset {
					t.Fatalf("Plan(%d, %d) range %d = %+v, want offset %d", length, n, i, r, offset)
				}
				offset += r.Length
				minLen = min(minLen, r.Length)
				maxLen = max(maxLen, r.Length)
			}
			if offset != length {
				t.Fatalf("Plan(%d, %d) covers %d bytes", length, n, offset)
			}
			if maxLen-minLen > 1 {
				t.Fatalf("Plan(%d, %d) unbalanced: min %d max %d", length, n, minLen, maxLen)
			}
		}
	}
}

func TestPlanRejects(t *testing.T) {
	tests := []struct {
		name   string
		length uint64
		d      Directive
	}{
		{"more parts than bytes", 3, Directive{Count: 5}},
		{"empty source many parts", 0, Directive{Count: 2}},
		{"no directive", 10, Directive{}},
		{"both directives", 10, Directive{Count: 2, MaxSize: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Plan(tt.length, tt.d); !errors.Is(err, failures.ErrInvalidPartitioning) {
				t.Fatalf("Plan error = %v, want InvalidPartitioning", err)
			}
		})
	}
}

func TestDirectiveFromRequest(t *testing.T) {
	if d, err := DirectiveFromRequest(3, 0); err != nil || d.Count != 3 {
		t.Fatalf("count directive = %+v, %v", d, err)
	}
	if d, err := DirectiveFromRequest(0, 64); err != nil || d.MaxSize != 64 {
		t.Fatalf("size directive = %+v, %v", d, err)
	}
	for _, tc := range [][2]int64{{-1, 0}, {0, -1}, {0, 0}, {2, 5}} {
		if _, err := DirectiveFromRequest(int(tc[0]), tc[1]); !errors.Is(err, failures.ErrInvalidPartitioning) {
			t.Fatalf("DirectiveFromRequest(%d, %d) = %v, want InvalidPartitioning", tc[0], tc[1], err)
		}
	}
}
