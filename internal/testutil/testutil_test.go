package testutil

import (
	"os"
	"strings"
	"testing"
)

func TestCanonicalInput_Shape(t *testing.T) {
	t.Parallel()

	blocks := strings.Split(strings.TrimSpace(CanonicalInput), "\n\n")
	if len(blocks) != len(CanonicalPositions) {
		t.Fatalf("blocks = %d, want %d", len(blocks), len(CanonicalPositions))
	}
	for i, b := range blocks {
		if !strings.HasPrefix(b, "--- scanner ") {
			t.Errorf("block %d missing header: %q", i, strings.SplitN(b, "\n", 2)[0])
		}
	}
}

func TestWriteCanonicalFile(t *testing.T) {
	t.Parallel()

	path := WriteCanonicalFile(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read canonical file: %v", err)
	}
	if string(data) != CanonicalInput {
		t.Error("written file does not match CanonicalInput")
	}
}
