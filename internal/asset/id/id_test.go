package id

import (
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	// Check format
	if !Valid(id) {
		t.Errorf("expected a UUID, got %s", id)
	}
	if len(id) != 36 {
		t.Errorf("expected canonical 36 character form, got %d characters", len(id))
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc-123", false},
		{"", false},
		{"job-1701432000-a1b2c3d4", false},
		{"3f2b8c1e-5d4a-4e8f-9b1c-2a7d6e0f4c91", true},
	}

	for _, tt := range tests {
		if got := Valid(tt.input); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
