package storage

import (
	"encoding/json"
	"slices"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hakim/snipe/internal/models"
)

// SaveScan persists a scan metadata record and indexes it under its key
func (s *Store) SaveScan(meta *models.ScanMeta) error {
	return s.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}

		scans := tx.Bucket([]byte(bucketScans))
		if err := scans.Put([]byte(meta.ID), data); err != nil {
			return err
		}

		// Update scan index (key -> []scan_id mapping)
		index := tx.Bucket([]byte(bucketScanIndex))
		indexKey := []byte(meta.Key)

		var scanIDs []string
		if existing := index.Get(indexKey); existing != nil {
			if err := json.Unmarshal(existing, &scanIDs); err != nil {
				return err
			}
		}
		if slices.Contains(scanIDs, meta.ID) {
			return nil
		}
		scanIDs = append(scanIDs, meta.ID)

		indexData, err := json.Marshal(scanIDs)
		if err != nil {
			return err
		}
		return index.Put(indexKey, indexData)
	})
}

// GetScan retrieves a scan metadata record by ID. A missing record is (nil, nil).
func (s *Store) GetScan(id string) (*models.ScanMeta, error) {
	var meta *models.ScanMeta

	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketScans)).Get([]byte(id))
		if data == nil {
			return nil
		}
		meta = &models.ScanMeta{}
		return json.Unmarshal(data, meta)
	})

	return meta, err
}

// ListScans retrieves all runs recorded for a checkpoint key, newest first
func (s *Store) ListScans(key string) ([]*models.ScanMeta, error) {
	var scans []*models.ScanMeta

	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketScanIndex)).Get([]byte(key))
		if data == nil {
			return nil
		}

		var scanIDs []string
		if err := json.Unmarshal(data, &scanIDs); err != nil {
			return err
		}

		bucket := tx.Bucket([]byte(bucketScans))
		for _, id := range scanIDs {
			raw := bucket.Get([]byte(id))
			if raw == nil {
				continue
			}
			var meta models.ScanMeta
			if err := json.Unmarshal(raw, &meta); err != nil {
				return err
			}
			scans = append(scans, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(scans)
	return scans, nil
}

// ListAll retrieves every recorded run, newest first. limit <= 0 means no limit.
func (s *Store) ListAll(limit int) ([]*models.ScanMeta, error) {
	var scans []*models.ScanMeta

	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketScans)).ForEach(func(_, v []byte) error {
			var meta models.ScanMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			scans = append(scans, &meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(scans)
	if limit > 0 && len(scans) > limit {
		scans = scans[:limit]
	}
	return scans, nil
}

// GetLatestScan retrieves the most recent run for a key, or nil
func (s *Store) GetLatestScan(key string) (*models.ScanMeta, error) {
	scans, err := s.ListScans(key)
	if err != nil || len(scans) == 0 {
		return nil, err
	}
	return scans[0], nil
}

// UpdateScanStatus updates the status of a scan and sets CompletedAt on terminal states
func (s *Store) UpdateScanStatus(id string, status models.ScanStatus) error {
	return s.modify(id, func(meta *models.ScanMeta) {
		meta.Status = status
		if (status == models.StatusComplete || status == models.StatusFailed) && meta.CompletedAt == nil {
			now := time.Now()
			meta.CompletedAt = &now
		}
	})
}

// UpdateProgress records how far a running scan has got
func (s *Store) UpdateProgress(id string, processed, total int64, available int) error {
	return s.modify(id, func(meta *models.ScanMeta) {
		meta.Processed = processed
		meta.Total = total
		meta.Available = available
	})
}

// modify applies fn to a stored record. A missing record is a no-op.
func (s *Store) modify(id string, fn func(meta *models.ScanMeta)) error {
	return s.update(func(tx *bbolt.Tx) error {
		scans := tx.Bucket([]byte(bucketScans))
		data := scans.Get([]byte(id))
		if data == nil {
			return nil
		}

		var meta models.ScanMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		fn(&meta)

		updated, err := json.Marshal(&meta)
		if err != nil {
			return err
		}
		return scans.Put([]byte(id), updated)
	})
}

func sortNewestFirst(scans []*models.ScanMeta) {
	sort.Slice(scans, func(i, j int) bool {
		return scans[i].StartedAt.After(scans[j].StartedAt)
	})
}
