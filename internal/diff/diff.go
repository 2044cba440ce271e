// Package diff computes the delta between two saved scan checkpoints.
// It compares the kept results of a previous and a current run and reports
// which domains became available, stopped being available, were renewed or
// entered the expiring window.
package diff

import (
	"sort"
	"strings"
	"time"

	"github.com/hakim/snipe/internal/models"
)

// ---------------------------------------------------------------------------
// DiffResult
// ---------------------------------------------------------------------------

// Change pairs the previous and current result for one domain. Either side
// is nil when the domain was not recorded in that checkpoint.
type Change struct {
	Domain   string
	Previous *models.ScanResult
	Current  *models.ScanResult
}

// DiffResult holds the complete delta between a previous and a current
// checkpoint. All slice fields are non-nil so callers can range over them
// unconditionally. Every slice is sorted by domain.
type DiffResult struct {
	NewlyAvailable    []Change
	NoLongerAvailable []Change
	ExpiryChanged     []Change
	NewlyExpiring     []Change

	// Summary counts, taken from the checkpoint tallies
	Previous models.Counts
	Current  models.Counts

	// ReferenceTime is the instant expiring windows are measured from.
	ReferenceTime time.Time
	Window        time.Duration
}

// Empty reports whether no change class has entries.
func (d *DiffResult) Empty() bool {
	return len(d.NewlyAvailable) == 0 &&
		len(d.NoLongerAvailable) == 0 &&
		len(d.ExpiryChanged) == 0 &&
		len(d.NewlyExpiring) == 0
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

// Compare calculates the delta between previous and current. Expiring
// windows are measured from the current checkpoint's timestamp.
//
// A previously available domain missing from current counts as no longer
// available only when current is a complete scan of the same mode, because
// registered results far from expiry are not kept.
func Compare(previous, current *models.Checkpoint, window time.Duration) *DiffResult {
	ref := current.Timestamp
	if ref.IsZero() {
		ref = time.Now()
	}

	dr := &DiffResult{
		NewlyAvailable:    []Change{},
		NoLongerAvailable: []Change{},
		ExpiryChanged:     []Change{},
		NewlyExpiring:     []Change{},
		Previous:          previous.Counts,
		Current:           current.Counts,
		ReferenceTime:     ref,
		Window:            window,
	}

	prevByName := index(previous.Results)
	currByName := index(current.Results)

	for name, cur := range currByName {
		prev := prevByName[name]
		ch := Change{Domain: name, Previous: prev, Current: cur}

		if cur.Status == models.VerdictAvailable && (prev == nil || prev.Status != models.VerdictAvailable) {
			dr.NewlyAvailable = append(dr.NewlyAvailable, ch)
		}
		if prev != nil && prev.Status == models.VerdictAvailable && cur.Status == models.VerdictRegistered {
			dr.NoLongerAvailable = append(dr.NoLongerAvailable, ch)
		}
		if prev != nil && prev.Status == models.VerdictRegistered && cur.Status == models.VerdictRegistered &&
			prev.Expiry != nil && cur.Expiry != nil && !prev.Expiry.Equal(*cur.Expiry) {
			dr.ExpiryChanged = append(dr.ExpiryChanged, ch)
		}
		if cur.ExpiresWithin(ref, window) && (prev == nil || !prev.ExpiresWithin(ref, window)) {
			dr.NewlyExpiring = append(dr.NewlyExpiring, ch)
		}
	}

	// Dropped from current: only meaningful when current walked the same space
	if current.Complete && current.Mode == previous.Mode {
		for name, prev := range prevByName {
			if _, ok := currByName[name]; ok || prev.Status != models.VerdictAvailable {
				continue
			}
			if coversTLD(current.TLDs, name) {
				dr.NoLongerAvailable = append(dr.NoLongerAvailable, Change{Domain: name, Previous: prev})
			}
		}
	}

	for _, s := range [][]Change{dr.NewlyAvailable, dr.NoLongerAvailable, dr.ExpiryChanged, dr.NewlyExpiring} {
		sort.Slice(s, func(i, j int) bool { return s[i].Domain < s[j].Domain })
	}
	return dr
}

// index maps domain to its result. Later duplicates win.
func index(results []models.ScanResult) map[string]*models.ScanResult {
	out := make(map[string]*models.ScanResult, len(results))
	for i := range results {
		out[results[i].Domain] = &results[i]
	}
	return out
}

func coversTLD(tlds []string, domain string) bool {
	for _, tld := range tlds {
		if strings.HasSuffix(domain, "."+tld) {
			return true
		}
	}
	return false
}
