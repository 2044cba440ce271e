package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanMeta is the scan index record kept for every run.
type ScanMeta struct {
	ID             string     `json:"id"`
	Key            string     `json:"key"`
	Mode           ScanMode   `json:"mode"`
	TLDs           []string   `json:"tlds"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Status         ScanStatus `json:"status"`
	CheckpointPath string     `json:"checkpoint_path"`
	Processed      int64      `json:"processed"`
	Total          int64      `json:"total"`
	Available      int        `json:"available"`
}

// NewScanMeta creates an index record for a scan that is about to start.
func NewScanMeta(key string, mode ScanMode, tlds []string, checkpointPath string) *ScanMeta {
	return &ScanMeta{
		ID:             uuid.New().String(),
		Key:            key,
		Mode:           mode,
		TLDs:           append([]string(nil), tlds...),
		StartedAt:      time.Now(),
		Status:         StatusPending,
		CheckpointPath: checkpointPath,
	}
}
