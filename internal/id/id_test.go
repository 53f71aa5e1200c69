package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	got, err := Generate(PrefixRecord)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(got, "rec-") {
		t.Errorf("Generate() = %q, want rec- prefix", got)
	}
	if len(got) != len("rec-")+21 {
		t.Errorf("Generate() length = %d, want %d", len(got), len("rec-")+21)
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		v := MustGenerate(PrefixBookmark)
		if seen[v] {
			t.Fatalf("duplicate id %s", v)
		}
		seen[v] = true
	}
}

func TestNewUserID(t *testing.T) {
	if _, err := uuid.Parse(NewUserID()); err != nil {
		t.Errorf("NewUserID() is not a uuid: %v", err)
	}
}
