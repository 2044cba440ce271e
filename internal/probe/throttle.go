package probe

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// penaltyStartRPS is the first finite limit applied to an unlimited host
	penaltyStartRPS = 5.0
	// minRPS is the floor Penalize never goes below
	minRPS = 0.5
	// maxHold caps how long a Retry-After may pause one host
	maxHold = time.Minute
)

// Throttle paces requests per registry host. Every host starts at the same
// limit and is slowed independently when it pushes back.
type Throttle struct {
	mu       sync.Mutex
	initial  rate.Limit
	limiters map[string]*rate.Limiter
	holds    map[string]time.Time
	now      func() time.Time
}

// NewThrottle returns a throttle allowing rps requests per second per host.
// rps <= 0 means unlimited until the first penalty.
func NewThrottle(rps float64) *Throttle {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Throttle{
		initial:  limit,
		limiters: make(map[string]*rate.Limiter),
		holds:    make(map[string]time.Time),
		now:      time.Now,
	}
}

func (t *Throttle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.initial, burstFor(t.initial))
		t.limiters[host] = l
	}
	return l
}

// Wait blocks until host may receive another request: first until any
// Retry-After hold has passed, then for a limiter token.
func (t *Throttle) Wait(ctx context.Context, host string) error {
	if d := t.HeldUntil(host).Sub(t.now()); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.limiter(host).Wait(ctx)
}

// Penalize halves the request rate for host. A positive retryAfter also
// holds every request to host until it has elapsed, capped at maxHold.
func (t *Throttle) Penalize(host string, retryAfter time.Duration) {
	l := t.limiter(host)
	cur := l.Limit()
	next := cur / 2
	if cur == rate.Inf {
		next = penaltyStartRPS
	}
	if next < minRPS {
		next = minRPS
	}
	l.SetLimit(next)
	l.SetBurst(burstFor(next))

	if retryAfter <= 0 {
		return
	}
	if retryAfter > maxHold {
		retryAfter = maxHold
	}
	until := t.now().Add(retryAfter)

	t.mu.Lock()
	defer t.mu.Unlock()
	if until.After(t.holds[host]) {
		t.holds[host] = until
	}
}

// HeldUntil returns the end of the Retry-After hold on host, zero if none
func (t *Throttle) HeldUntil(host string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.holds[host]
}

// Limit reports the current limit for host
func (t *Throttle) Limit(host string) rate.Limit {
	return t.limiter(host).Limit()
}

func burstFor(l rate.Limit) int {
	if l == rate.Inf || l < 1 {
		return 1
	}
	return int(l)
}
