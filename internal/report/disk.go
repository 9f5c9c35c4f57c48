package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Load for a run that was never saved.
var ErrNotFound = errors.New("run not found")

// DiskStore keeps one JSON document per run under Dir. The directory is
// owned by the caller.
type DiskStore struct {
	Dir string
}

// NewDiskStore returns a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

// Save writes result to a temporary file and renames it into place, so a
// concurrent Load never sees a partial document.
func (s *DiskStore) Save(result *RunResult) error {
	path, err := s.path(result.ID)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.Dir, ".run-*")
	if err != nil {
		return fmt.Errorf("saving run %s: %w", result.ID, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("encoding run %s: %w", result.ID, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("saving run %s: %w", result.ID, err)
	}
	return os.Rename(f.Name(), path)
}

// Load decodes the run saved under runID.
func (s *DiskStore) Load(runID string) (*RunResult, error) {
	path, err := s.path(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := new(RunResult)
	if err := json.NewDecoder(f).Decode(result); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", runID, err)
	}
	return result, nil
}

// path maps a run ID to its file. Only UUIDs are accepted, which keeps
// callers from naming anything outside Dir.
func (s *DiskStore) path(runID string) (string, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(s.Dir, id.String()+".json"), nil
}
