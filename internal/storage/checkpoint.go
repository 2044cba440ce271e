package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/hakim/snipe/internal/models"
)

// CheckpointStore reads and writes checkpoint files
type CheckpointStore struct {
	fs afero.Fs
}

// NewCheckpointStore returns a store over fs. Production code passes
// afero.NewOsFs(); tests use afero.NewMemMapFs().
func NewCheckpointStore(fs afero.Fs) *CheckpointStore {
	return &CheckpointStore{fs: fs}
}

// Fs returns the underlying filesystem
func (s *CheckpointStore) Fs() afero.Fs { return s.fs }

// Save atomically replaces the checkpoint at path: the JSON is written to a
// temporary file in the same directory, synced, then renamed over path.
func (s *CheckpointStore) Save(path string, cp *models.Checkpoint) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load reads the checkpoint at path. A missing file is ErrNotFound; an
// unreadable, corrupt or foreign-schema file is a *PersistenceError.
func (s *CheckpointStore) Load(path string) (*models.Checkpoint, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("corrupt checkpoint: %w", err)}
	}
	if cp.SchemaVersion != models.SchemaVersion {
		return nil, &PersistenceError{
			Op:   "load",
			Path: path,
			Err:  fmt.Errorf("schema version %d, want %d", cp.SchemaVersion, models.SchemaVersion),
		}
	}
	if cp.Results == nil {
		cp.Results = []models.ScanResult{}
	}
	return &cp, nil
}

// Exists reports whether a checkpoint file is present at path
func (s *CheckpointStore) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}
