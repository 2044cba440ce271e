package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hakim/snipe/internal/diff"
	"github.com/hakim/snipe/internal/models"
)

// WriteDiffReport generates a markdown report capturing the delta between two
// checkpoints and writes it to outputPath.
func WriteDiffReport(result *diff.DiffResult, outputPath string) error {
	var b strings.Builder

	b.WriteString("# Scan Diff Report\n\n")
	b.WriteString(fmt.Sprintf("**Date:** %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))

	writeDiffSummaryTable(&b, result)

	// If there are zero changes across all categories, short-circuit.
	if result.Empty() {
		b.WriteString("No changes detected.\n")
		return writeFile(outputPath, b.String())
	}

	writeChangeList(&b, "Newly Available", "+", result.NewlyAvailable, func(c diff.Change) string {
		if c.Previous == nil {
			return "not seen before"
		}
		return "was " + describe(c.Previous)
	})
	writeChangeList(&b, "No Longer Available", "-", result.NoLongerAvailable, func(c diff.Change) string {
		if c.Current == nil {
			return "no longer listed"
		}
		return "now " + describe(c.Current)
	})
	writeChangeList(&b, "Expiry Changed", "", result.ExpiryChanged, func(c diff.Change) string {
		return fmt.Sprintf("%s → %s", formatDate(c.Previous.Expiry), formatDate(c.Current.Expiry))
	})
	writeChangeList(&b, "Newly Expiring", "+", result.NewlyExpiring, func(c diff.Change) string {
		return "expires " + formatDate(c.Current.Expiry)
	})

	return writeFile(outputPath, b.String())
}

// ---------------------------------------------------------------------------
// Section writers
// ---------------------------------------------------------------------------

// writeDiffSummaryTable writes the verdict comparison table.
func writeDiffSummaryTable(b *strings.Builder, r *diff.DiffResult) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Verdict | Previous | Current | Change |\n")
	b.WriteString("|---------|----------|---------|--------|\n")

	rows := []struct {
		name       string
		prev, curr int64
	}{
		{"Probed", r.Previous.Probed, r.Current.Probed},
		{"Available", r.Previous.Available, r.Current.Available},
		{"Registered", r.Previous.Registered, r.Current.Registered},
		{"Unknown", r.Previous.Unknown, r.Current.Unknown},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", row.name, row.prev, row.curr, formatChange(row.curr-row.prev)))
	}
	b.WriteString("\n")
}

// writeChangeList renders one change class. Skipped when empty.
func writeChangeList(b *strings.Builder, title, sign string, changes []diff.Change, detail func(diff.Change) string) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s (%s%d)\n\n", title, sign, len(changes)))
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", c.Domain, detail(c)))
	}
	b.WriteString("\n")
}

// formatChange returns a signed delta such as "+3", or "none".
func formatChange(delta int64) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("+%d", delta)
	case delta < 0:
		return fmt.Sprintf("%d", delta)
	default:
		return "none"
	}
}

func describe(r *models.ScanResult) string {
	if r.Status == models.VerdictRegistered && r.Expiry != nil {
		return "registered until " + formatDate(r.Expiry)
	}
	return string(r.Status)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02")
}
