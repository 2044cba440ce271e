package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hakim/snipe/internal/models"
)

// WriteScanReport generates a markdown summary of a checkpoint and writes it
// to the specified output path. Registered results are split into expired
// and expiring using threshold.
func WriteScanReport(cp *models.Checkpoint, threshold time.Duration, outputPath string) error {
	var b strings.Builder
	now := time.Now()

	// Header
	b.WriteString("# Domain Scan Report\n\n")
	b.WriteString(fmt.Sprintf("**Scan ID:** %s\n", cp.ScanID))
	b.WriteString(fmt.Sprintf("**Mode:** %s | **TLDs:** %s\n", cp.Mode, strings.Join(cp.TLDs, ", ")))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", now.Format("2006-01-02 15:04:05")))
	status := "in progress"
	if cp.Complete {
		status = "complete"
	}
	b.WriteString(fmt.Sprintf("**Progress:** %d/%d (%.1f%%, %s)\n\n", cp.Cursor, cp.Total, cp.Progress()*100, status))

	// Counts
	b.WriteString("## Summary\n\n")
	b.WriteString("| Verdict | Count |\n")
	b.WriteString("|---------|-------|\n")
	b.WriteString(fmt.Sprintf("| Available | %d |\n", cp.Counts.Available))
	b.WriteString(fmt.Sprintf("| Registered | %d |\n", cp.Counts.Registered))
	b.WriteString(fmt.Sprintf("| Unknown | %d |\n", cp.Counts.Unknown))
	b.WriteString(fmt.Sprintf("| Skipped | %d |\n", cp.Counts.Skipped))
	b.WriteString(fmt.Sprintf("| Throttled | %d |\n", cp.Counts.Throttled))
	b.WriteString("\n")

	available, expired, expiring := classify(cp.Results, now, threshold)

	// Available domains
	b.WriteString(fmt.Sprintf("## Available (%d)\n\n", len(available)))
	if len(available) > 0 {
		b.WriteString("| Domain | Protocol | Score | Rationale |\n")
		b.WriteString("|--------|----------|-------|-----------|\n")
		for _, r := range available {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", r.Domain, orDash(string(r.Protocol)), formatScore(r.Score), orDash(r.Rationale)))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	// Expired but still registered
	b.WriteString(fmt.Sprintf("## Expired (%d)\n\n", len(expired)))
	writeExpiryTable(&b, expired, now)

	// Expiring within the threshold
	b.WriteString(fmt.Sprintf("## Expiring Within %d Days (%d)\n\n", int(threshold.Hours()/24), len(expiring)))
	writeExpiryTable(&b, expiring, now)

	return writeFile(outputPath, b.String())
}

// classify splits results into available, expired and expiring, each sorted
// by domain (expiry tables by date).
func classify(results []models.ScanResult, now time.Time, threshold time.Duration) (available, expired, expiring []models.ScanResult) {
	for _, r := range results {
		switch {
		case r.Status == models.VerdictAvailable:
			available = append(available, r)
		case r.Status == models.VerdictRegistered && r.Expiry != nil && r.Expiry.Before(now):
			expired = append(expired, r)
		case r.ExpiresWithin(now, threshold):
			expiring = append(expiring, r)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i].Domain < available[j].Domain })
	byExpiry := func(s []models.ScanResult) {
		sort.Slice(s, func(i, j int) bool { return s[i].Expiry.Before(*s[j].Expiry) })
	}
	byExpiry(expired)
	byExpiry(expiring)
	return available, expired, expiring
}

// writeExpiryTable renders registered results with their expiry dates.
func writeExpiryTable(b *strings.Builder, results []models.ScanResult, now time.Time) {
	if len(results) == 0 {
		b.WriteString("None found.\n\n")
		return
	}
	b.WriteString("| Domain | Expires | Days | Registrar |\n")
	b.WriteString("|--------|---------|------|-----------|\n")
	for _, r := range results {
		days := int(r.Expiry.Sub(now).Hours() / 24)
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
			r.Domain, r.Expiry.UTC().Format("2006-01-02"), days, orDash(r.Registrar)))
	}
	b.WriteString("\n")
}

func formatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writeFile writes content to outputPath
func writeFile(outputPath, content string) error {
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}
