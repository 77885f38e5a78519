package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if s := NewProgressSampler(size); s.bucketSize != 5 || s.lastBucket != -1 {
			t.Fatalf("NewProgressSampler(%v) = %+v", size, s)
		}
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Fatalf("custom bucket ignored: %v", s.bucketSize)
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "files") {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerSequence(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "depth 3", true},
		{4, "depth 3", false},
		{10, "depth 3", true},
		{19.9, "depth 3", false},
		{20, " depth 3 ", true},
		{20, "depth 2", true},
		{-1, "depth 2", false},
		{-1, "final docs", true},
		{150, "final docs", true},
		{100, "final docs", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v, %q) = %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "files")
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("state not cleared: %+v", s)
	}
	if !s.ShouldLog(50, "files") {
		t.Fatal("should log after reset")
	}
}
