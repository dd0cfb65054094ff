// internal/replay/state_test.go
package replay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateReadWrite(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", "replay_offset")

	// Initially should return zero
	n, err := ReadOffset(statePath)
	if err != nil {
		t.Fatalf("ReadOffset (missing file) error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 for missing file, got %d", n)
	}

	if err := WriteOffset(statePath, 1234); err != nil {
		t.Fatalf("WriteOffset error: %v", err)
	}

	n, err = ReadOffset(statePath)
	if err != nil {
		t.Fatalf("ReadOffset error: %v", err)
	}
	if n != 1234 {
		t.Errorf("ReadOffset = %d, want 1234", n)
	}
}

func TestStateCorruptFile(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "replay_offset")

	for _, garbage := range []string{"not a number", "-5", ""} {
		os.WriteFile(statePath, []byte(garbage), 0644)

		// Should return zero (fresh start)
		n, err := ReadOffset(statePath)
		if err != nil {
			t.Fatalf("ReadOffset (%q) error: %v", garbage, err)
		}
		if n != 0 {
			t.Errorf("ReadOffset (%q) = %d, want 0", garbage, n)
		}
	}
}

func TestStateEmptyPath(t *testing.T) {
	if err := WriteOffset("", 7); err != nil {
		t.Fatalf("WriteOffset with empty path: %v", err)
	}
	if n, err := ReadOffset(""); err != nil || n != 0 {
		t.Errorf("ReadOffset(\"\") = %d, %v; want 0, nil", n, err)
	}
}
