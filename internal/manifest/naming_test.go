package manifest

import "testing"

func TestPartNameRoundTrip(t *testing.T) {
	tests := []struct {
		base   string
		index  uint32
		digits int
		want   string
	}{
		{"movie.mkv", 0, 3, "movie.mkv.part000"},
		{"movie.mkv", 42, 3, "movie.mkv.part042"},
		{"a.part7", 1234, 4, "a.part7.part1234"},
		{"x", 5, 0, "x.part005"},
	}
	for _, tt := range tests {
		got := PartName(tt.base, tt.index, tt.digits)
		if got != tt.want {
			t.Fatalf("PartName(%q, %d, %d) = %q, want %q", tt.base, tt.index, tt.digits, got, tt.want)
		}
		base, index, _, ok := ParsePartName(got)
		if !ok || base != tt.base || index != tt.index {
			t.Fatalf("ParsePartName(%q) = %q, %d, %v", got, base, index, ok)
		}
	}
}

func TestParsePartNameRejects(t *testing.T) {
	for _, name := range []string{"movie.mkv", ".part001", "movie.part", "movie.part01a", "movie.manifest"} {
		if _, _, _, ok := ParsePartName(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestDigitsFor(t *testing.T) {
	tests := []struct {
		count uint32
		min   int
		want  int
	}{
		{1, 3, 3},
		{1000, 3, 3},
		{1001, 3, 4},
		{100000, 3, 5},
		{12, 0, 3},
		{12, 1, 2},
	}
	for _, tt := range tests {
		if got := DigitsFor(tt.count, tt.min); got != tt.want {
			t.Fatalf("DigitsFor(%d, %d) = %d, want %d", tt.count, tt.min, got, tt.want)
		}
	}
}

func TestBaseFromManifestName(t *testing.T) {
	if base, ok := BaseFromManifestName("movie.mkv.manifest"); !ok || base != "movie.mkv" {
		t.Fatalf("got %q, %v", base, ok)
	}
	if _, ok := BaseFromManifestName(".manifest"); ok {
		t.Fatal("bare extension should be rejected")
	}
}
