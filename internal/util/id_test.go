package util

import (
	"strings"
	"testing"
)

func TestNewIDCarriesPrefix(t *testing.T) {
	id := NewID("ver")
	if !strings.HasPrefix(id, "ver_") {
		t.Fatalf("expected ver_ prefix, got %q", id)
	}
	if got := len(id); got != len("ver_")+idBytes*2 {
		t.Fatalf("unexpected id length %d: %q", got, id)
	}
}

func TestNewIDWithoutPrefix(t *testing.T) {
	id := NewID("")
	if strings.Contains(id, "_") {
		t.Fatalf("bare id should have no separator: %q", id)
	}
	if got := len(id); got != idBytes*2 {
		t.Fatalf("unexpected id length %d: %q", got, id)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID("art")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
