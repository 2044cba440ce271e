package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/snipe/internal/models"
)

var (
	ref    = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window = 7 * 24 * time.Hour
	mode   = models.ScanMode{Kind: models.ModeFull, Length: 4}
)

func at(days int) *time.Time {
	t := ref.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func checkpoint(complete bool, results ...models.ScanResult) *models.Checkpoint {
	cp := models.NewCheckpoint(mode, []string{"com"}, models.RateLimitConfig{Concurrency: 20, BatchDelayMs: 500}, 10)
	cp.Results = results
	cp.Complete = complete
	cp.Timestamp = ref
	return cp
}

func result(domain string, v models.Verdict) models.ScanResult {
	return models.ScanResult{Domain: domain, Verdict: v}
}

func domains(cs []Change) []string {
	out := []string{}
	for _, c := range cs {
		out = append(out, c.Domain)
	}
	return out
}

func TestCompare(t *testing.T) {
	prev := checkpoint(true,
		result("gone.com", models.Available()),
		result("took.com", models.Available()),
		result("renew.com", models.Registered(at(3))),
		result("still.com", models.Available()),
		result("near.com", models.Registered(at(2))),
		result("idle.com", models.Unknown("timeout")),
	)
	curr := checkpoint(true,
		result("took.com", models.Registered(at(300))),
		result("renew.com", models.Registered(at(368))),
		result("still.com", models.Available()),
		result("near.com", models.Registered(at(2))),
		result("idle.com", models.Available()),
		result("fresh.com", models.Available()),
		result("soon.com", models.Registered(at(5))),
	)

	dr := Compare(prev, curr, window)

	assert.Equal(t, []string{"fresh.com", "idle.com"}, domains(dr.NewlyAvailable))
	assert.Equal(t, []string{"gone.com", "took.com"}, domains(dr.NoLongerAvailable))
	assert.Equal(t, []string{"renew.com"}, domains(dr.ExpiryChanged))
	assert.Equal(t, []string{"soon.com"}, domains(dr.NewlyExpiring))
	assert.False(t, dr.Empty())
	assert.Equal(t, ref, dr.ReferenceTime)

	for _, c := range dr.NoLongerAvailable {
		if c.Domain == "gone.com" {
			assert.Nil(t, c.Current)
			require.NotNil(t, c.Previous)
		}
	}
}

func TestCompareIncompleteCurrentKeepsMissing(t *testing.T) {
	prev := checkpoint(true, result("gone.com", models.Available()))
	curr := checkpoint(false)

	dr := Compare(prev, curr, window)
	assert.Empty(t, dr.NoLongerAvailable)
	assert.True(t, dr.Empty())
}

func TestCompareDifferentModeKeepsMissing(t *testing.T) {
	prev := checkpoint(true, result("gone.com", models.Available()))
	curr := checkpoint(true)
	curr.Mode = models.ScanMode{Kind: models.ModeWords, Length: 4}

	dr := Compare(prev, curr, window)
	assert.Empty(t, dr.NoLongerAvailable)
}

func TestCompareIdentical(t *testing.T) {
	cp := checkpoint(true,
		result("ab.com", models.Available()),
		result("cd.com", models.Registered(at(1))),
	)
	dr := Compare(cp, cp, window)
	assert.True(t, dr.Empty())
	assert.NotNil(t, dr.NewlyAvailable)
}
