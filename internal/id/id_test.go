package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	a, err := Generate(PrefixQuestion)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(a, "q-") {
		t.Errorf("id = %q, want q- prefix", a)
	}
	if len(a) != len("q-")+21 {
		t.Errorf("len(id) = %d, want %d", len(a), len("q-")+21)
	}
	b := MustGenerate(PrefixQuestion)
	if a == b {
		t.Error("two generated ids collided")
	}
}
