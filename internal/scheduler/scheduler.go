// Package scheduler runs probes in fixed-size batches with an idle delay
// between batches, backing off when registries push back.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hakim/snipe/internal/logger"
	"github.com/hakim/snipe/internal/models"
)

const defaultMaxBatchDelay = 10 * time.Second

// ProbeFunc checks one candidate. It must not return until the check is done.
type ProbeFunc func(ctx context.Context, c models.DomainCandidate) models.ScanResult

// Outcome pairs a candidate with its result
type Outcome struct {
	Candidate models.DomainCandidate
	Result    models.ScanResult
}

// Options controls batch shaping.
type Options struct {
	// Concurrency is both the batch size and the bound on in-flight probes.
	Concurrency int

	// BatchDelay is the idle time after a batch completes before the next
	// batch may start.
	BatchDelay time.Duration

	// MaxBatchDelay caps the delay after repeated throttled batches.
	// Zero means sixteen times BatchDelay, or 10s when BatchDelay is zero.
	MaxBatchDelay time.Duration

	// RequeueLimit is how many times throttled members of a batch are
	// probed again before their Unknown result is accepted.
	RequeueLimit int

	// OnBatch is called with each completed batch, in order.
	OnBatch func(outcomes []Outcome)
}

// Scheduler drives probes batch by batch. One Scheduler is shared by all Run
// calls of a scan so the inter-batch delay holds across chunks.
type Scheduler struct {
	opts   Options
	log    *logger.Logger
	tracer trace.Tracer

	mu           sync.Mutex
	delay        time.Duration
	lastBatchEnd time.Time
}

// New returns a Scheduler. Concurrency below 1 is treated as 1.
func New(opts Options, log *logger.Logger) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.MaxBatchDelay < opts.BatchDelay || opts.MaxBatchDelay == 0 {
		opts.MaxBatchDelay = opts.BatchDelay * 16
		if opts.MaxBatchDelay == 0 {
			opts.MaxBatchDelay = defaultMaxBatchDelay
		}
	}
	return &Scheduler{
		opts:   opts,
		log:    log,
		tracer: otel.Tracer("github.com/hakim/snipe/internal/scheduler"),
		delay:  opts.BatchDelay,
	}
}

// CurrentDelay returns the inter-batch delay in effect
func (s *Scheduler) CurrentDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Run probes candidates in batches of Concurrency, in input order.
//
// Cancellation is only observed between batches. Probes receive a context
// that is never cancelled, so a started batch always completes. On
// cancellation Run returns the outcomes of every completed batch together
// with ctx.Err().
func (s *Scheduler) Run(ctx context.Context, candidates []models.DomainCandidate, probe ProbeFunc) ([]Outcome, error) {
	out := make([]Outcome, 0, len(candidates))
	size := s.opts.Concurrency

	for start := 0; start < len(candidates); start += size {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := s.waitTurn(ctx); err != nil {
			return out, err
		}

		end := min(start+size, len(candidates))
		batch := s.runBatch(ctx, candidates[start:end], probe)
		out = append(out, batch...)

		if s.opts.OnBatch != nil {
			s.opts.OnBatch(batch)
		}
	}
	return out, nil
}

func (s *Scheduler) runBatch(ctx context.Context, batch []models.DomainCandidate, probe ProbeFunc) []Outcome {
	ctx, span := s.tracer.Start(ctx, "scheduler.batch",
		trace.WithAttributes(attribute.Int("size", len(batch))))
	defer span.End()

	results := make([]Outcome, len(batch))
	pending := make([]int, len(batch))
	for i := range batch {
		pending[i] = i
	}

	probeCtx := context.WithoutCancel(ctx)
	for round := 0; ; round++ {
		p := pool.New().WithMaxGoroutines(s.opts.Concurrency)
		for _, i := range pending {
			p.Go(func() {
				results[i] = Outcome{Candidate: batch[i], Result: probe(probeCtx, batch[i])}
			})
		}
		p.Wait()
		s.markBatchEnd()

		var throttled []int
		for _, i := range pending {
			if results[i].Result.Throttled {
				throttled = append(throttled, i)
			}
		}
		if len(throttled) == 0 {
			s.relax()
			return results
		}

		delay := s.escalate()
		span.SetAttributes(attribute.Int("throttled", len(throttled)), attribute.Int("round", round))
		s.log.Warn(ctx, "registry throttled batch",
			"throttled", len(throttled), "batch", len(batch), "round", round, "delay", delay.String())

		if round >= s.opts.RequeueLimit {
			return results
		}
		// A cancelled scan keeps the throttled results instead of waiting out the backoff
		if err := s.waitTurn(ctx); err != nil {
			return results
		}
		pending = throttled
	}
}

// waitTurn sleeps until the current delay has passed since the last batch ended
func (s *Scheduler) waitTurn(ctx context.Context) error {
	s.mu.Lock()
	last, delay := s.lastBatchEnd, s.delay
	s.mu.Unlock()

	if last.IsZero() || delay <= 0 {
		return nil
	}
	wait := time.Until(last.Add(delay))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) markBatchEnd() {
	s.mu.Lock()
	s.lastBatchEnd = time.Now()
	s.mu.Unlock()
}

func (s *Scheduler) escalate() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.delay * 2
	if next == 0 {
		next = 250 * time.Millisecond
	}
	s.delay = min(next, s.opts.MaxBatchDelay)
	return s.delay
}

func (s *Scheduler) relax() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = max(s.delay/2, s.opts.BatchDelay)
}
