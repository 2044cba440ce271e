package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/scheduler"
	"github.com/hakim/snipe/internal/storage"
)

// RecheckConfig controls a Recheck call.
type RecheckConfig struct {
	// Path is the checkpoint or results file to refresh in place.
	Path string

	// Threshold selects registered domains expiring within it.
	Threshold time.Duration

	Rate          models.RateLimitConfig
	RequeueLimit  int
	MaxBatchDelay time.Duration
}

// Recheck re-probes the available and soon-expiring results of a saved
// checkpoint and writes the refreshed checkpoint back. An interrupted
// recheck keeps what it finished and returns the context error.
func Recheck(ctx context.Context, cfg RecheckConfig, d Deps) (*storage.RecheckReport, error) {
	if d.Checkpoints == nil || d.Checker == nil {
		return nil, fmt.Errorf("pipeline: checkpoint store and checker are required")
	}
	if cfg.Rate.Concurrency < 1 {
		return nil, fmt.Errorf("pipeline: concurrency must be at least 1, got %d", cfg.Rate.Concurrency)
	}

	key := strings.TrimSuffix(filepath.Base(cfg.Path), filepath.Ext(cfg.Path))
	release, err := d.lock(cfg.Path, key)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			d.Log.Warn(ctx, "releasing checkpoint lock", "path", cfg.Path, "error", err)
		}
	}()

	sched := scheduler.New(scheduler.Options{
		Concurrency:   cfg.Rate.Concurrency,
		BatchDelay:    cfg.Rate.BatchDelay(),
		MaxBatchDelay: cfg.MaxBatchDelay,
		RequeueLimit:  cfg.RequeueLimit,
	}, d.Log)

	reprobe := func(ctx context.Context, stale []models.ScanResult) ([]models.ScanResult, error) {
		batch := make([]models.DomainCandidate, len(stale))
		for i, r := range stale {
			batch[i] = splitDomain(r.Domain)
		}
		fmt.Printf("[*] Rechecking %d domains\n", len(batch))
		outcomes, err := sched.Run(ctx, batch, d.Checker.Check)
		fresh := make([]models.ScanResult, len(outcomes))
		for i, o := range outcomes {
			fresh[i] = o.Result
		}
		return fresh, err
	}

	return d.Checkpoints.Recheck(ctx, cfg.Path, storage.RecheckOptions{Threshold: cfg.Threshold}, reprobe)
}

// splitDomain splits name at its first dot: "ab.co.uk" is label "ab" under "co.uk".
func splitDomain(name string) models.DomainCandidate {
	label, tld, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), ".")
	return models.DomainCandidate{Label: label, TLD: tld}
}
