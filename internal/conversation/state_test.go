package conversation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateFilePath(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "nested")

	path, err := stateFilePath(base)
	if err != nil {
		t.Fatalf("stateFilePath(%q) error = %v", base, err)
	}
	if path != filepath.Join(base, stateFile) {
		t.Errorf("stateFilePath() = %q, want under %q", path, base)
	}

	// Directory must exist afterwards.
	if _, err := os.Stat(base); err != nil {
		t.Errorf("stateFilePath() did not create directory: %v", err)
	}
}

func TestSaveAndLoadCurrentID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := SaveCurrentID(dir, "66f0a1b2c3d4e5f6a7b8c9d0"); err != nil {
		t.Fatalf("SaveCurrentID() error = %v", err)
	}

	got, err := LoadCurrentID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentID() error = %v", err)
	}
	if got != "66f0a1b2c3d4e5f6a7b8c9d0" {
		t.Errorf("LoadCurrentID() = %q, want %q", got, "66f0a1b2c3d4e5f6a7b8c9d0")
	}
}

func TestLoadCurrentIDMissing(t *testing.T) {
	t.Parallel()

	got, err := LoadCurrentID(t.TempDir())
	if err != nil {
		t.Fatalf("LoadCurrentID() error = %v", err)
	}
	if got != "" {
		t.Errorf("LoadCurrentID() = %q, want empty for missing state", got)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := SaveCurrentID(dir, "first"); err != nil {
		t.Fatalf("SaveCurrentID(first) error = %v", err)
	}
	if err := SaveCurrentID(dir, "second"); err != nil {
		t.Fatalf("SaveCurrentID(second) error = %v", err)
	}

	got, err := LoadCurrentID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentID() error = %v", err)
	}
	if got != "second" {
		t.Errorf("LoadCurrentID() = %q, want %q", got, "second")
	}
}

func TestClearCurrentID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := SaveCurrentID(dir, "gone-soon"); err != nil {
		t.Fatalf("SaveCurrentID() error = %v", err)
	}
	if err := ClearCurrentID(dir); err != nil {
		t.Fatalf("ClearCurrentID() error = %v", err)
	}

	got, err := LoadCurrentID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentID() after clear error = %v", err)
	}
	if got != "" {
		t.Errorf("LoadCurrentID() after clear = %q, want empty", got)
	}

	// Clearing twice is idempotent.
	if err := ClearCurrentID(dir); err != nil {
		t.Errorf("ClearCurrentID() second call error = %v", err)
	}
}
