package models

import (
	"fmt"
	"time"
)

// DomainCandidate is a label paired with the TLD it will be checked under.
type DomainCandidate struct {
	Label string `json:"label"`
	TLD   string `json:"tld"`
}

// Name returns the fully qualified domain name.
func (c DomainCandidate) Name() string {
	return c.Label + "." + c.TLD
}

// ScanMode describes which candidate generator a scan uses. Two scans with
// equal modes enumerate the same labels in the same order.
type ScanMode struct {
	Kind         ModeKind `json:"kind"`
	Length       int      `json:"length"`
	Alphanumeric bool     `json:"alphanumeric"`
	// Source is the digest of a custom word list; empty for built-in lists.
	Source string `json:"source,omitempty"`
}

// String renders the mode compactly, e.g. "words5" or "full4-alnum".
func (m ScanMode) String() string {
	s := fmt.Sprintf("%s%d", m.Kind, m.Length)
	if m.Alphanumeric {
		s += "-alnum"
	}
	if m.Source != "" {
		s += "-" + m.Source
	}
	return s
}

// RateLimitConfig shapes outbound traffic: at most Concurrency probes per
// batch and BatchDelayMs of idle time after every batch.
type RateLimitConfig struct {
	Concurrency  int `json:"concurrency"`
	BatchDelayMs int `json:"batchDelayMs"`
}

// BatchDelay returns the inter-batch delay as a duration.
func (r RateLimitConfig) BatchDelay() time.Duration {
	return time.Duration(r.BatchDelayMs) * time.Millisecond
}
