package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

const bucketOwner = "owner"

// LockOwner identifies the process holding a checkpoint lock
type LockOwner struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Key        string    `json:"key"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is an advisory lock on one checkpoint. It is backed by a bbolt file
// whose exclusive flock is held for as long as the Lock is open.
type Lock struct {
	db   *bbolt.DB
	path string
}

// LockPath returns the lock file path for a checkpoint
func LockPath(checkpointPath string) string {
	return checkpointPath + ".lock"
}

// AcquireLock takes the lock for checkpointPath on behalf of the scan with
// the given checkpoint key, waiting at most one second. If another scan
// holds it the error wraps ErrLocked.
func AcquireLock(checkpointPath, key string) (*Lock, error) {
	path := LockPath(checkpointPath)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, berrors.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, checkpointPath)
		}
		return nil, &PersistenceError{Op: "lock", Path: path, Err: err}
	}

	host, _ := os.Hostname()
	owner := LockOwner{PID: os.Getpid(), Host: host, Key: key, AcquiredAt: time.Now().UTC()}
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketOwner))
		if err != nil {
			return err
		}
		data, err := json.Marshal(owner)
		if err != nil {
			return err
		}
		return b.Put([]byte("current"), data)
	})
	if err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "lock", Path: path, Err: err}
	}

	return &Lock{db: db, path: path}, nil
}

// Owner returns the owner record written when the lock was taken
func (l *Lock) Owner() (LockOwner, error) {
	var owner LockOwner
	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketOwner))
		if b == nil {
			return errors.New("storage: lock has no owner record")
		}
		return json.Unmarshal(b.Get([]byte("current")), &owner)
	})
	return owner, err
}

// Release drops the lock. The lock file is left on disk.
func (l *Lock) Release() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
