package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hakim/snipe/internal/models"
)

// NotifyConfig configures where to send completion notifications.
type NotifyConfig struct {
	WebhookURL string // if empty, no notifications

	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	ScanID         string        `json:"scan_id"`
	Key            string        `json:"key"`
	Status         string        `json:"status"`
	Cursor         int64         `json:"cursor"`
	Total          int64         `json:"total"`
	Counts         models.Counts `json:"counts"`
	Available      []string      `json:"available"`
	Expiring       []string      `json:"expiring"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
}

// SendCompletion posts a JSON summary of the scan to the webhook URL.
// Returns nil if WebhookURL is empty (no-op). Callers treat errors as warnings.
func (n *NotifyConfig) SendCompletion(ctx context.Context, s *ScanSummary) error {
	if n == nil || n.WebhookURL == "" || s == nil {
		return nil
	}

	payload := completionPayload{
		ScanID:         s.ScanID,
		Key:            s.Key,
		Status:         string(s.Status),
		Cursor:         s.Cursor,
		Total:          s.Total,
		Counts:         s.Counts,
		Available:      domains(s.Available),
		Expiring:       domains(s.Expiring),
		ElapsedSeconds: s.Elapsed.Seconds(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}

func domains(rs []models.ScanResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Domain
	}
	return out
}
