package models

// ScanStatus represents the current state of a scan
type ScanStatus string

const (
	StatusPending     ScanStatus = "pending"
	StatusRunning     ScanStatus = "running"
	StatusInterrupted ScanStatus = "interrupted"
	StatusComplete    ScanStatus = "complete"
	StatusFailed      ScanStatus = "failed"
)

// VerdictStatus is the outcome class of a single availability check.
type VerdictStatus string

const (
	VerdictAvailable  VerdictStatus = "available"
	VerdictRegistered VerdictStatus = "registered"
	VerdictUnknown    VerdictStatus = "unknown"
)

// Protocol identifies the wire protocol that produced a verdict.
type Protocol string

const (
	ProtocolRDAP  Protocol = "rdap"
	ProtocolWHOIS Protocol = "whois"
)

// ModeKind selects the candidate generator.
type ModeKind string

const (
	ModeFull          ModeKind = "full"
	ModePronounceable ModeKind = "pronounceable"
	ModeWords         ModeKind = "words"
	ModeReadable      ModeKind = "readable"
	ModeSuggestions   ModeKind = "suggestions"
)
