package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketScans     = "scans"
	bucketScanIndex = "scan_index"
)

// Store is the bbolt scan index. The database is opened per operation so
// concurrent scans on different keys can share one index file.
type Store struct {
	path    string
	timeout time.Duration
}

// NewStore initializes the bbolt database at the given path and its buckets
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, timeout: 5 * time.Second}

	err := s.update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketScans)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketScanIndex)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

func (s *Store) open() (*bbolt.DB, error) {
	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("storage: opening index %s: %w", s.path, err)
	}
	return db, nil
}

func (s *Store) update(fn func(tx *bbolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *Store) view(fn func(tx *bbolt.Tx) error) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}
