package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	stateDir  = ".gencraft"
	stateFile = "current_conversation"
)

// DefaultStateDir returns the directory holding local CLI state
// (~/.gencraft). Separate from the config search path so tests can
// redirect state without touching configuration.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, stateDir), nil
}

// stateFilePath returns the path to the current-conversation state file
// under baseDir, creating baseDir if needed.
func stateFilePath(baseDir string) (string, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(baseDir, stateFile), nil
}

// LoadCurrentID loads the most recently opened conversation ID from the
// local state file. Returns ("", nil) when no current conversation exists.
func LoadCurrentID(baseDir string) (string, error) {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading state file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// SaveCurrentID records id as the current conversation. The write is
// atomic (temp file + rename) and serialized across processes with an
// advisory file lock, so two CLI instances cannot interleave writes.
func SaveCurrentID(baseDir, id string) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck // best-effort unlock on exit

	tmp, err := os.CreateTemp(filepath.Dir(path), stateFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(id + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// ClearCurrentID removes the current-conversation marker. Idempotent:
// clearing when nothing is set is not an error.
func ClearCurrentID(baseDir string) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
