package names

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		name := Generate()
		if name == "" {
			t.Fatal("generated empty name")
		}
		words := strings.Fields(name)
		if len(words) < 2 {
			t.Fatalf("expected at least adjective and noun, got %q", name)
		}
		seen[name] = true
	}
	if len(seen) < 20 {
		t.Fatalf("expected variety, got only %d unique names", len(seen))
	}
}

func TestGenerateEpithetForm(t *testing.T) {
	// Some fraction of names carry an epithet; those must read
	// "Adjective Noun of ...".
	sawEpithet := false
	for i := 0; i < 500; i++ {
		name := Generate()
		if strings.Contains(name, " of ") {
			sawEpithet = true
			if len(strings.Fields(name)) < 4 {
				t.Fatalf("malformed epithet name %q", name)
			}
		}
	}
	if !sawEpithet {
		t.Fatal("expected at least one epithet name in 500 draws")
	}
}
