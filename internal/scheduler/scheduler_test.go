package scheduler

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/snipe/internal/logger"
	"github.com/hakim/snipe/internal/models"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func makeCandidates(n int) []models.DomainCandidate {
	out := make([]models.DomainCandidate, n)
	for i := range out {
		out[i] = models.DomainCandidate{Label: fmt.Sprintf("c%03d", i), TLD: "com"}
	}
	return out
}

func available(_ context.Context, c models.DomainCandidate) models.ScanResult {
	return models.ScanResult{Domain: c.Name(), Verdict: models.Available()}
}

func TestRunPreservesOrder(t *testing.T) {
	s := New(Options{Concurrency: 4}, testLogger())
	cands := makeCandidates(10)

	out, err := s.Run(context.Background(), cands, func(ctx context.Context, c models.DomainCandidate) models.ScanResult {
		// Later members finish first
		time.Sleep(time.Duration('9'-c.Label[3]) * time.Millisecond)
		return available(ctx, c)
	})
	require.NoError(t, err)
	require.Len(t, out, 10)
	for i, o := range out {
		assert.Equal(t, cands[i], o.Candidate)
		assert.Equal(t, cands[i].Name(), o.Result.Domain)
	}
}

func TestInFlightBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	s := New(Options{Concurrency: 5}, testLogger())

	_, err := s.Run(context.Background(), makeCandidates(23), func(ctx context.Context, c models.DomainCandidate) models.ScanResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		inFlight.Add(-1)
		return available(ctx, c)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(5))
	assert.Equal(t, int32(5), peak.Load())
}

func TestBatchStartsRespectDelay(t *testing.T) {
	const delay = 500 * time.Millisecond
	var mu sync.Mutex
	starts := map[int][]time.Time{}

	var batches atomic.Int32
	s := New(Options{
		Concurrency: 5,
		BatchDelay:  delay,
		OnBatch:     func([]Outcome) { batches.Add(1) },
	}, testLogger())

	cands := makeCandidates(15)
	index := map[string]int{}
	for i, c := range cands {
		index[c.Label] = i
	}

	_, err := s.Run(context.Background(), cands, func(ctx context.Context, c models.DomainCandidate) models.ScanResult {
		mu.Lock()
		b := index[c.Label] / 5
		starts[b] = append(starts[b], time.Now())
		mu.Unlock()
		return available(ctx, c)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), batches.Load())

	first := func(ts []time.Time) time.Time {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
		return ts[0]
	}
	for b := 1; b < 3; b++ {
		gap := first(starts[b]).Sub(first(starts[b-1]))
		assert.GreaterOrEqual(t, gap, delay, "batch %d started %s after batch %d", b, gap, b-1)
	}
}

func TestDelayAppliesAcrossRuns(t *testing.T) {
	const delay = 200 * time.Millisecond
	s := New(Options{Concurrency: 2, BatchDelay: delay}, testLogger())

	_, err := s.Run(context.Background(), makeCandidates(2), available)
	require.NoError(t, err)
	begin := time.Now()
	_, err = s.Run(context.Background(), makeCandidates(2), available)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(begin), delay-10*time.Millisecond)
}

func TestCancellationDrainsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var probed atomic.Int32
	s := New(Options{Concurrency: 5, BatchDelay: 50 * time.Millisecond}, testLogger())

	out, err := s.Run(ctx, makeCandidates(20), func(pctx context.Context, c models.DomainCandidate) models.ScanResult {
		probed.Add(1)
		if c.Label == "c002" {
			cancel()
		}
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, pctx.Err(), "probe context must outlive cancellation")
		return available(pctx, c)
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, out, 5)
	assert.Equal(t, int32(5), probed.Load())
	for i, o := range out {
		assert.Equal(t, fmt.Sprintf("c%03d.com", i), o.Result.Domain)
		assert.Equal(t, models.VerdictAvailable, o.Result.Status)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{Concurrency: 5}, testLogger())
	out, err := s.Run(ctx, makeCandidates(3), available)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
}

func TestThrottledMembersAreRequeued(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}

	s := New(Options{
		Concurrency:   3,
		BatchDelay:    10 * time.Millisecond,
		MaxBatchDelay: 100 * time.Millisecond,
		RequeueLimit:  2,
	}, testLogger())

	out, err := s.Run(context.Background(), makeCandidates(3), func(ctx context.Context, c models.DomainCandidate) models.ScanResult {
		mu.Lock()
		calls[c.Label]++
		n := calls[c.Label]
		mu.Unlock()
		if c.Label == "c001" && n == 1 {
			return models.ScanResult{Domain: c.Name(), Verdict: models.Unknown("rate limited"), Throttled: true}
		}
		return available(ctx, c)
	})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 1, calls["c000"])
	assert.Equal(t, 2, calls["c001"])
	assert.Equal(t, 1, calls["c002"])
	assert.Equal(t, models.VerdictAvailable, out[1].Result.Status)
	assert.False(t, out[1].Result.Throttled)

	// One throttled round doubled the delay, the clean retry halved it back
	assert.Equal(t, 10*time.Millisecond, s.CurrentDelay())
}

func TestDelayEscalatesUpToCap(t *testing.T) {
	var calls atomic.Int32
	s := New(Options{
		Concurrency:   2,
		BatchDelay:    10 * time.Millisecond,
		MaxBatchDelay: 30 * time.Millisecond,
		RequeueLimit:  1,
	}, testLogger())

	out, err := s.Run(context.Background(), makeCandidates(2), func(ctx context.Context, c models.DomainCandidate) models.ScanResult {
		calls.Add(1)
		return models.ScanResult{Domain: c.Name(), Verdict: models.Unknown("rate limited"), Throttled: true}
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Result.Throttled)
	// Initial round plus one requeue
	assert.Equal(t, int32(4), calls.Load())
	// 10ms → 20ms → capped at 30ms
	assert.Equal(t, 30*time.Millisecond, s.CurrentDelay())
}
