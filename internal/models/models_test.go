package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanModeString(t *testing.T) {
	tests := []struct {
		mode ScanMode
		want string
	}{
		{ScanMode{Kind: ModeFull, Length: 4}, "full4"},
		{ScanMode{Kind: ModeWords, Length: 5, Alphanumeric: true}, "words5-alnum"},
		{ScanMode{Kind: ModeWords, Length: 6, Source: "ab12cd"}, "words6-ab12cd"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.mode.String())
		})
	}
}

func TestCountsAdd(t *testing.T) {
	var c Counts
	c.Add(ScanResult{Verdict: Available()})
	c.Add(ScanResult{Verdict: Registered(nil)})
	c.Add(ScanResult{Verdict: Unknown("timeout"), Throttled: true})
	assert.Equal(t, Counts{Probed: 3, Available: 1, Registered: 1, Unknown: 1, Throttled: 1}, c)
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	soon := now.Add(48 * time.Hour)
	late := now.Add(30 * 24 * time.Hour)
	window := 7 * 24 * time.Hour

	assert.True(t, Registered(&past).ExpiresWithin(now, window))
	assert.True(t, Registered(&soon).ExpiresWithin(now, window))
	assert.False(t, Registered(&late).ExpiresWithin(now, window))
	assert.False(t, Registered(nil).ExpiresWithin(now, window))
	assert.False(t, Available().ExpiresWithin(now, window))
}

func TestCheckpointRecountAndMatches(t *testing.T) {
	rate := RateLimitConfig{Concurrency: 20, BatchDelayMs: 500}
	mode := ScanMode{Kind: ModeFull, Length: 4}
	cp := NewCheckpoint(mode, []string{"com", "io"}, rate, 10)
	assert.NotEmpty(t, cp.ScanID)
	assert.Equal(t, SchemaVersion, cp.SchemaVersion)

	cp.Counts.Probed = 5
	cp.Results = []ScanResult{
		{Domain: "ab.com", Verdict: Available()},
		{Domain: "cd.com", Verdict: Unknown("x")},
	}
	cp.Recount()
	assert.Equal(t, int64(1), cp.Counts.Available)
	assert.Equal(t, int64(1), cp.Counts.Unknown)
	assert.Equal(t, int64(3), cp.Counts.Registered)

	assert.True(t, cp.Matches(mode, []string{"com", "io"}, rate))
	assert.False(t, cp.Matches(mode, []string{"io", "com"}, rate))
	assert.False(t, cp.Matches(ScanMode{Kind: ModeFull, Length: 5}, []string{"com", "io"}, rate))
	assert.False(t, cp.Matches(mode, []string{"com", "io"}, RateLimitConfig{Concurrency: 1}))

	cp.Cursor = 5
	assert.InDelta(t, 0.5, cp.Progress(), 1e-9)
	assert.InDelta(t, 1.0, (&Checkpoint{}).Progress(), 1e-9)
}

func TestScanResultJSON(t *testing.T) {
	exp := time.Date(2027, 3, 1, 5, 0, 0, 0, time.UTC)
	r := ScanResult{Domain: "ab.com", Verdict: Registered(&exp), Protocol: ProtocolRDAP, Throttled: true}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "registered", m["verdict"])
	assert.Equal(t, "rdap", m["protocolUsed"])
	assert.Contains(t, m, "expiry")
	assert.NotContains(t, m, "Throttled")
	assert.NotContains(t, m, "score")
}
