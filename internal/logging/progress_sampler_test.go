package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "split") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "streaming") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "streaming") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "verifying") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "verifying" {
		t.Errorf("lastPhase = %q, want verifying", s.lastPhase)
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(0, "streaming")

	if s.ShouldLog(9.9, "streaming") {
		t.Error("9.9% should not log (same bucket)")
	}
	if !s.ShouldLog(10, "streaming") {
		t.Error("10% should log (new bucket)")
	}
	if !s.ShouldLog(100, "streaming") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "streaming") {
		t.Error("over 100% should reuse the final bucket")
	}
}

func TestProgressSampler_Bytes(t *testing.T) {
	s := NewProgressSampler(25)
	if !s.ShouldLogBytes(0, 1000, "split") {
		t.Error("first byte event should log")
	}
	if s.ShouldLogBytes(200, 1000, "split") {
		t.Error("20% should not log with 25% buckets")
	}
	if !s.ShouldLogBytes(500, 1000, "split") {
		t.Error("50% should log")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total uint64
		want        float64
	}{
		{0, 0, 100},
		{0, 10, 0},
		{5, 10, 50},
		{20, 10, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.done, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "streaming")
	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Errorf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(50, "streaming") {
		t.Error("should log after reset")
	}
}
