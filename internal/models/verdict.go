package models

import "time"

// Verdict is the availability decision for one domain. Expiry is only set
// for registered domains whose registry reported an expiration date.
type Verdict struct {
	Status VerdictStatus `json:"verdict"`
	Expiry *time.Time    `json:"expiry,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Available returns the verdict for an unregistered domain.
func Available() Verdict {
	return Verdict{Status: VerdictAvailable}
}

// Registered returns the verdict for a registered domain.
func Registered(expiry *time.Time) Verdict {
	return Verdict{Status: VerdictRegistered, Expiry: expiry}
}

// Unknown returns an inconclusive verdict carrying the reason.
func Unknown(reason string) Verdict {
	return Verdict{Status: VerdictUnknown, Reason: reason}
}

// ExpiresWithin reports whether a registered domain expires before now+window.
// Already-expired domains are included.
func (v Verdict) ExpiresWithin(now time.Time, window time.Duration) bool {
	if v.Status != VerdictRegistered || v.Expiry == nil {
		return false
	}
	return v.Expiry.Before(now.Add(window))
}

// ScanResult is one checked domain as it is persisted in a checkpoint.
type ScanResult struct {
	Domain string `json:"domain"`
	Verdict
	Protocol  Protocol  `json:"protocolUsed,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
	Registrar string    `json:"registrar,omitempty"`

	// Score and Rationale are carried through from suggestion input.
	Score     *float64 `json:"score,omitempty"`
	Rationale string   `json:"rationale,omitempty"`

	// Throttled marks a probe the registry refused with a rate limit.
	Throttled bool `json:"-"`
}
