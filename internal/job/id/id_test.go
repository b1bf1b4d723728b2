package id

import (
	"strings"
	"testing"
)

func TestGenerate_Format(t *testing.T) {
	got := Generate()
	if !strings.HasPrefix(got, "job-") {
		t.Errorf("Generate() = %q, want job- prefix", got)
	}
	parts := strings.Split(got, "-")
	if len(parts) != 3 {
		t.Errorf("Generate() = %q, want 3 dash-separated parts", got)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := Generate()
		if seen[id] {
			t.Fatalf("Generate() produced duplicate ID %q", id)
		}
		seen[id] = true
	}
}
