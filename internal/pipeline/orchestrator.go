package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hakim/snipe/internal/candidates"
	"github.com/hakim/snipe/internal/logger"
	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/scheduler"
	"github.com/hakim/snipe/internal/storage"
	"github.com/hakim/snipe/internal/validate"
)

// DefaultBatchSize is the number of pairs committed per checkpoint write.
const DefaultBatchSize = 100

// ErrCheckpointMismatch is returned when --resume finds a checkpoint written
// by a scan with different parameters.
var ErrCheckpointMismatch = errors.New("pipeline: checkpoint does not match scan parameters")

// StoreInterface is the minimal bbolt contract required by the orchestrator.
// Using an interface keeps the package testable without a real database.
type StoreInterface interface {
	SaveScan(meta *models.ScanMeta) error
	UpdateScanStatus(id string, status models.ScanStatus) error
	UpdateProgress(id string, processed, total int64, available int) error
}

// Checker decides the availability of one domain. *probe.Prober satisfies it.
type Checker interface {
	Check(ctx context.Context, c models.DomainCandidate) models.ScanResult
}

// LockFunc takes the exclusive lock on a checkpoint and returns its release.
type LockFunc func(checkpointPath, key string) (release func() error, err error)

// FileLock is the LockFunc backed by storage.AcquireLock.
func FileLock(checkpointPath, key string) (func() error, error) {
	if err := storage.EnsureDir(filepath.Dir(checkpointPath)); err != nil {
		return nil, &storage.PersistenceError{Op: "lock", Path: checkpointPath, Err: err}
	}
	l, err := storage.AcquireLock(checkpointPath, key)
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}

// Deps are the collaborators shared by every pipeline entry point.
type Deps struct {
	Checkpoints *storage.CheckpointStore
	Checker     Checker

	// Store is the scan index. Nil disables index bookkeeping.
	Store StoreInterface

	// Lock guards a checkpoint against concurrent scans. Nil means FileLock.
	Lock LockFunc

	Log *logger.Logger
}

func (d Deps) lock(path, key string) (func() error, error) {
	if d.Lock != nil {
		return d.Lock(path, key)
	}
	return FileLock(path, key)
}

// ScanConfig controls a single RunScan call.
type ScanConfig struct {
	// Mode selects the candidate generator and is part of the checkpoint key.
	Mode models.ScanMode

	// Source overrides the generator built from Mode, e.g. a custom word list.
	Source candidates.Source

	// TLDs are checked for every label, in this order.
	TLDs []string

	// Rate shapes outbound traffic and is part of the checkpoint key.
	Rate models.RateLimitConfig

	// BatchSize is the number of pairs per checkpoint commit. Zero means DefaultBatchSize.
	BatchSize int

	// OutputDir holds the checkpoint file.
	OutputDir string

	// Resume continues from an existing checkpoint instead of starting over.
	Resume bool

	// KeepRegistered records every registered result, not only expiring ones.
	KeepRegistered bool

	// ExpiringWithin is the window in which a registered domain counts as expiring.
	ExpiringWithin time.Duration

	// RequeueLimit and MaxBatchDelay tune the scheduler's rate-limit response.
	RequeueLimit  int
	MaxBatchDelay time.Duration

	// OnProgress is called after every committed chunk.
	OnProgress func(p Progress)
}

// Progress is a snapshot taken after a chunk is committed.
type Progress struct {
	Cursor  int64
	Total   int64
	Counts  models.Counts
	Elapsed time.Duration
}

// ScanSummary summarises what happened after RunScan returns.
type ScanSummary struct {
	ScanID         string
	Key            string
	CheckpointPath string
	Status         models.ScanStatus
	Resumed        bool
	Cursor         int64
	Total          int64
	Counts         models.Counts
	Available      []models.ScanResult
	Expiring       []models.ScanResult
	Elapsed        time.Duration
	Checkpoint     *models.Checkpoint
}

// RunScan scans the candidate space described by cfg, committing a checkpoint
// after every chunk.
//
// Cancellation of ctx is honoured between scheduler batches: the in-flight
// batch drains, the completed prefix is checkpointed and RunScan returns a
// summary with StatusInterrupted and a nil error. Only configuration and
// persistence failures are returned as errors.
func RunScan(ctx context.Context, cfg ScanConfig, d Deps) (*ScanSummary, error) {
	started := time.Now()

	// ── 1. Validate required inputs ───────────────────────────────────────────
	if d.Checkpoints == nil || d.Checker == nil {
		return nil, fmt.Errorf("pipeline: checkpoint store and checker are required")
	}
	tlds, err := validate.NormalizeTLDs(cfg.TLDs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	var errs []error
	for _, tld := range tlds {
		if err := validate.ValidateTLD(tld); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Rate.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Rate.Concurrency))
	}
	if cfg.Rate.BatchDelayMs < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %d", cfg.Rate.BatchDelayMs))
	}
	if cfg.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch size must not be negative, got %d", cfg.BatchSize))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: invalid scan config: %w", errors.Join(errs...))
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	src := cfg.Source
	if src == nil {
		if src, err = candidates.ForMode(cfg.Mode); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	pairs, err := candidates.NewPairs(src, tlds)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// ── 2. Key, path and lock ─────────────────────────────────────────────────
	key := storage.CheckpointKey(cfg.Mode, tlds, cfg.Rate)
	path := storage.CheckpointPath(cfg.OutputDir, key)

	release, err := d.lock(path, key)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			d.Log.Warn(ctx, "releasing checkpoint lock", "path", path, "error", err)
		}
	}()

	// ── 3. Load or create the checkpoint ──────────────────────────────────────
	cp, resumed, err := openCheckpoint(cfg, d, path, tlds, pairs.Len())
	if err != nil {
		return nil, err
	}

	summary := &ScanSummary{
		ScanID:         cp.ScanID,
		Key:            key,
		CheckpointPath: path,
		Resumed:        resumed,
		Checkpoint:     cp,
	}
	if cp.Complete {
		fmt.Printf("[*] Checkpoint %s is already complete\n", path)
		summary.Status = models.StatusComplete
		fillSummary(summary, cp, cfg.ExpiringWithin, started)
		return summary, nil
	}

	ctx, span := otel.Tracer("github.com/hakim/snipe/internal/pipeline").Start(ctx, "snipe.scan",
		trace.WithAttributes(
			attribute.String("key", key),
			attribute.Int64("total", cp.Total),
			attribute.Int64("cursor", cp.Cursor),
		))
	defer span.End()

	// ── 4. Record the run in the scan index ───────────────────────────────────
	meta := models.NewScanMeta(key, cfg.Mode, tlds, path)
	meta.Status = models.StatusRunning
	meta.Processed = cp.Cursor
	meta.Total = cp.Total
	if d.Store != nil {
		if err := d.Store.SaveScan(meta); err != nil {
			// Non-fatal: the checkpoint is the source of truth.
			fmt.Printf("[!] Warning: could not record scan in index: %v\n", err)
		}
	}
	fmt.Printf("[*] Scan ID: %s\n", cp.ScanID)

	// ── 5. Probe chunk by chunk ───────────────────────────────────────────────
	sched := scheduler.New(scheduler.Options{
		Concurrency:   cfg.Rate.Concurrency,
		BatchDelay:    cfg.Rate.BatchDelay(),
		MaxBatchDelay: cfg.MaxBatchDelay,
		RequeueLimit:  cfg.RequeueLimit,
	}, d.Log)
	v := validate.Validator{AllowDigits: cfg.Mode.Alphanumeric}

	interrupted := false
	for cp.Cursor < cp.Total {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		chunk := pairs.Slice(cp.Cursor, cp.Cursor+int64(cfg.BatchSize))
		valid := make([]candidates.Pair, 0, len(chunk))
		invalid := make([]int64, 0)
		for _, p := range chunk {
			if err := v.Validate(p.Candidate.Label, p.Candidate.TLD); err != nil {
				d.Log.Debug(ctx, "skipping invalid candidate", "domain", p.Candidate.Name(), "error", err)
				invalid = append(invalid, p.Index)
				continue
			}
			valid = append(valid, p)
		}

		batch := make([]models.DomainCandidate, len(valid))
		for i, p := range valid {
			batch[i] = p.Candidate
		}

		outcomes, runErr := sched.Run(ctx, batch, d.Checker.Check)

		now := time.Now()
		for _, o := range outcomes {
			cp.Counts.Add(o.Result)
			if keepResult(o.Result, cfg.KeepRegistered, now, cfg.ExpiringWithin) {
				cp.Results = append(cp.Results, o.Result)
			}
		}

		// Advance to the first unresolved valid pair, or past the chunk
		next := chunk[len(chunk)-1].Index + 1
		if len(outcomes) < len(valid) {
			next = valid[len(outcomes)].Index
		}
		for _, idx := range invalid {
			if idx < next {
				cp.Counts.Skipped++
			}
		}
		cp.Cursor = next
		cp.Timestamp = now.UTC()

		if err := d.Checkpoints.Save(path, cp); err != nil {
			markStatus(d, meta.ID, models.StatusFailed)
			return nil, fmt.Errorf("pipeline: committing checkpoint: %w", err)
		}

		if d.Store != nil {
			if err := d.Store.UpdateProgress(meta.ID, cp.Cursor, cp.Total, int(cp.Counts.Available)); err != nil {
				d.Log.Warn(ctx, "updating scan progress", "scan_id", meta.ID, "error", err)
			}
		}
		if cfg.OnProgress != nil {
			cfg.OnProgress(Progress{Cursor: cp.Cursor, Total: cp.Total, Counts: cp.Counts, Elapsed: time.Since(started)})
		}

		if runErr != nil {
			interrupted = true
			break
		}
	}

	// ── 6. Finalise ───────────────────────────────────────────────────────────
	if interrupted {
		summary.Status = models.StatusInterrupted
		markStatus(d, meta.ID, models.StatusInterrupted)
		fmt.Printf("[!] Scan interrupted at %d/%d; progress saved to %s\n", cp.Cursor, cp.Total, path)
	} else {
		cp.Complete = true
		cp.Timestamp = time.Now().UTC()
		if err := d.Checkpoints.Save(path, cp); err != nil {
			markStatus(d, meta.ID, models.StatusFailed)
			return nil, fmt.Errorf("pipeline: committing final checkpoint: %w", err)
		}
		summary.Status = models.StatusComplete
		markStatus(d, meta.ID, models.StatusComplete)
	}

	span.SetAttributes(
		attribute.String("status", string(summary.Status)),
		attribute.Int64("probed", cp.Counts.Probed),
		attribute.Int64("available", cp.Counts.Available),
	)
	fillSummary(summary, cp, cfg.ExpiringWithin, started)
	return summary, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// openCheckpoint loads the checkpoint for a resumed scan or creates a fresh one.
func openCheckpoint(cfg ScanConfig, d Deps, path string, tlds []string, total int64) (*models.Checkpoint, bool, error) {
	if cfg.Resume {
		cp, err := d.Checkpoints.Load(path)
		switch {
		case err == nil:
			if !cp.Matches(cfg.Mode, tlds, cfg.Rate) || cp.Total != total {
				return nil, false, fmt.Errorf("%w: %s was written for %s %v %+v", ErrCheckpointMismatch, path, cp.Mode, cp.TLDs, cp.RateConfig)
			}
			fmt.Printf("[*] Resuming %s at %d/%d (%.1f%%)\n", path, cp.Cursor, cp.Total, cp.Progress()*100)
			return cp, true, nil
		case errors.Is(err, storage.ErrNotFound):
			fmt.Printf("[*] No checkpoint at %s, starting fresh\n", path)
		default:
			return nil, false, fmt.Errorf("pipeline: loading checkpoint: %w", err)
		}
	} else if exists, _ := d.Checkpoints.Exists(path); exists {
		fmt.Printf("[!] Overwriting existing checkpoint %s (use --resume to continue it)\n", path)
	}

	cp := models.NewCheckpoint(cfg.Mode, tlds, cfg.Rate, total)
	if err := d.Checkpoints.Save(path, cp); err != nil {
		return nil, false, fmt.Errorf("pipeline: creating checkpoint: %w", err)
	}
	return cp, false, nil
}

// keepResult applies the results-keeping policy: available and unknown
// results are always kept; registered ones only when asked for or expiring.
func keepResult(r models.ScanResult, keepRegistered bool, now time.Time, window time.Duration) bool {
	if r.Status != models.VerdictRegistered {
		return true
	}
	return keepRegistered || r.ExpiresWithin(now, window)
}

func markStatus(d Deps, id string, status models.ScanStatus) {
	if d.Store == nil {
		return
	}
	if err := d.Store.UpdateScanStatus(id, status); err != nil {
		fmt.Printf("[!] Warning: could not update scan status to %s: %v\n", status, err)
	}
}

func fillSummary(s *ScanSummary, cp *models.Checkpoint, window time.Duration, started time.Time) {
	now := time.Now()
	s.Cursor = cp.Cursor
	s.Total = cp.Total
	s.Counts = cp.Counts
	s.Available = s.Available[:0]
	s.Expiring = s.Expiring[:0]
	for _, r := range cp.Results {
		switch {
		case r.Status == models.VerdictAvailable:
			s.Available = append(s.Available, r)
		case r.ExpiresWithin(now, window):
			s.Expiring = append(s.Expiring, r)
		}
	}
	s.Elapsed = time.Since(started)
}
