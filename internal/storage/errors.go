package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no checkpoint exists at the path
	ErrNotFound = errors.New("storage: checkpoint not found")
	// ErrLocked means another scan holds the checkpoint lock
	ErrLocked = errors.New("storage: checkpoint is locked by another scan")
)

// PersistenceError is a failure to read or write durable scan state. It is
// fatal to the run; the previous checkpoint on disk is left untouched.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
