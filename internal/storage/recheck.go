package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/snipe/internal/models"
)

// RecheckOptions selects which stored results are probed again
type RecheckOptions struct {
	// Threshold widens the registered selection to domains expiring before Now+Threshold.
	Threshold time.Duration
	// Now is the reference time; zero means time.Now().
	Now time.Time
}

// ReprobeFunc probes the given results again and returns fresh results for
// a prefix of them, in the same order. On cancellation it returns the
// completed prefix with the context error.
type ReprobeFunc func(ctx context.Context, stale []models.ScanResult) ([]models.ScanResult, error)

// VerdictChange records one result whose verdict changed on recheck
type VerdictChange struct {
	Domain string
	Before models.Verdict
	After  models.Verdict
}

// RecheckReport summarises a recheck. Kept counts rechecked domains whose
// fresh result was Unknown, for which the stored result was left in place.
type RecheckReport struct {
	Selected   int
	Rechecked  int
	Kept       int
	Changes    []VerdictChange
	Checkpoint *models.Checkpoint
}

// SelectForRecheck returns the indexes of results worth probing again:
// every available result and every registered one expiring within the threshold.
func SelectForRecheck(results []models.ScanResult, now time.Time, threshold time.Duration) []int {
	var idx []int
	for i, r := range results {
		if r.Status == models.VerdictAvailable || r.ExpiresWithin(now, threshold) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Recheck loads the checkpoint at path, re-probes the selected results and
// saves the updated checkpoint. Results not selected, and results whose
// fresh probe was Unknown, are left as they were.
// When reprobe stops early, the completed part is still saved and its
// error is returned alongside the report.
func (s *CheckpointStore) Recheck(ctx context.Context, path string, opts RecheckOptions, reprobe ReprobeFunc) (*RecheckReport, error) {
	cp, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	idx := SelectForRecheck(cp.Results, now, opts.Threshold)
	report := &RecheckReport{Selected: len(idx), Checkpoint: cp}
	if len(idx) == 0 {
		return report, nil
	}

	stale := make([]models.ScanResult, len(idx))
	for i, j := range idx {
		stale[i] = cp.Results[j]
	}

	fresh, runErr := reprobe(ctx, stale)
	if len(fresh) > len(stale) {
		return nil, fmt.Errorf("storage: recheck returned %d results for %d domains", len(fresh), len(stale))
	}

	for i, r := range fresh {
		old := cp.Results[idx[i]]
		// Unknown never replaces a stored verdict
		if r.Status == models.VerdictUnknown {
			report.Kept++
			continue
		}
		if r.Score == nil {
			r.Score = old.Score
		}
		if r.Rationale == "" {
			r.Rationale = old.Rationale
		}
		if r.Status != old.Status || !sameExpiry(r.Expiry, old.Expiry) {
			report.Changes = append(report.Changes, VerdictChange{Domain: r.Domain, Before: old.Verdict, After: r.Verdict})
		}
		cp.Results[idx[i]] = r
	}
	report.Rechecked = len(fresh)

	if len(fresh) > 0 {
		cp.Recount()
		stamp := time.Now().UTC()
		cp.RecheckedAt = &stamp
		cp.Timestamp = stamp
		if err := s.Save(path, cp); err != nil {
			return nil, err
		}
	}

	return report, runErr
}

func sameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
