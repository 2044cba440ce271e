package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is bumped whenever the checkpoint layout changes
// incompatibly.
const SchemaVersion = 1

// Counts tallies verdicts over the processed prefix of a scan.
type Counts struct {
	Probed     int64 `json:"probed"`
	Available  int64 `json:"available"`
	Registered int64 `json:"registered"`
	Unknown    int64 `json:"unknown"`
	Skipped    int64 `json:"skipped"`
	Throttled  int64 `json:"throttled"`
}

// Add records a single probe result.
func (c *Counts) Add(r ScanResult) {
	c.Probed++
	switch r.Status {
	case VerdictAvailable:
		c.Available++
	case VerdictRegistered:
		c.Registered++
	default:
		c.Unknown++
	}
	if r.Throttled {
		c.Throttled++
	}
}

// Checkpoint is the durable record of a scan. Cursor counts candidate pairs
// in generation order; every pair below it has been resolved.
type Checkpoint struct {
	SchemaVersion int             `json:"schemaVersion"`
	ScanID        string          `json:"scanId"`
	Mode          ScanMode        `json:"mode"`
	TLDs          []string        `json:"tlds"`
	RateConfig    RateLimitConfig `json:"rateConfig"`
	Cursor        int64           `json:"cursor"`
	Total         int64           `json:"total"`
	Complete      bool            `json:"complete"`
	Counts        Counts          `json:"counts"`
	Results       []ScanResult    `json:"results"`
	CreatedAt     time.Time       `json:"createdAt"`
	Timestamp     time.Time       `json:"timestamp"`
	RecheckedAt   *time.Time      `json:"recheckedAt,omitempty"`
}

// NewCheckpoint creates an empty checkpoint for a fresh scan.
func NewCheckpoint(mode ScanMode, tlds []string, rate RateLimitConfig, total int64) *Checkpoint {
	now := time.Now().UTC()
	return &Checkpoint{
		SchemaVersion: SchemaVersion,
		ScanID:        uuid.New().String(),
		Mode:          mode,
		TLDs:          append([]string(nil), tlds...),
		RateConfig:    rate,
		Total:         total,
		Results:       []ScanResult{},
		CreatedAt:     now,
		Timestamp:     now,
	}
}

// Matches reports whether the checkpoint was produced by the same scan
// parameters. TLD order matters because the cursor is candidate-major.
func (c *Checkpoint) Matches(mode ScanMode, tlds []string, rate RateLimitConfig) bool {
	return c.Mode == mode && slices.Equal(c.TLDs, tlds) && c.RateConfig == rate
}

// Recount rebuilds Counts.Available/Registered/Unknown from Results. Probed,
// Skipped and Throttled are left alone since dropped registered results are
// not kept.
func (c *Checkpoint) Recount() {
	var available, registered, unknown int64
	for _, r := range c.Results {
		switch r.Status {
		case VerdictAvailable:
			available++
		case VerdictRegistered:
			registered++
		default:
			unknown++
		}
	}
	droppedRegistered := c.Counts.Probed - int64(len(c.Results))
	if droppedRegistered < 0 {
		droppedRegistered = 0
	}
	c.Counts.Available = available
	c.Counts.Registered = registered + droppedRegistered
	c.Counts.Unknown = unknown
}

// Progress returns the processed fraction in [0,1].
func (c *Checkpoint) Progress() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Cursor) / float64(c.Total)
}
