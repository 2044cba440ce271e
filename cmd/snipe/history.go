package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past scans",
	Long: `Display a formatted table of past scans from the scan index.

Scans are listed newest-first. Each row shows the scan ID (truncated), start
time, status, progress and how many available domains were found.

Use --key to show only runs of one checkpoint key and --limit to cap the
number of rows shown (default: 10).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Get flags
		key, _ := cmd.Flags().GetString("key")
		limit, _ := cmd.Flags().GetInt("limit")

		// Step 2: Open bbolt store
		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		// Step 3: List scans (sorted newest-first by the store)
		var scans []*models.ScanMeta
		if key != "" {
			scans, err = store.ListScans(key)
		} else {
			scans, err = store.ListAll(0)
		}
		if err != nil {
			return fmt.Errorf("listing scans: %w", err)
		}

		if len(scans) == 0 {
			fmt.Println("No scan history found")
			return nil
		}

		// Step 4: Apply limit
		if limit > 0 && len(scans) > limit {
			scans = scans[:limit]
		}

		// Step 5: Print formatted table
		const separator = "────────────────────────────────────────────────────────────────────────────────────"

		fmt.Println()
		fmt.Println(separator)
		fmt.Printf("  %-3s  %-12s  %-17s  %-12s  %-22s  %-9s  %s\n", "#", "Scan ID", "Started", "Status", "Progress", "Available", "Key")
		fmt.Println(separator)

		for i, scan := range scans {
			started := scan.StartedAt.UTC().Format("2006-01-02 15:04")
			progress := fmt.Sprintf("%d/%d", scan.Processed, scan.Total)
			fmt.Printf("  %-3d  %-12s  %-17s  %-12s  %-22s  %-9d  %s\n",
				i+1, shortScanID(scan.ID), started, scan.Status, progress, scan.Available, scan.Key)
		}

		fmt.Println(separator)
		fmt.Printf("Total: %d scan(s)\n\n", len(scans))

		return nil
	},
}

// shortScanID returns the first 8 characters of a UUID followed by "..." for
// compact table display. Falls back to the full ID when shorter than 8 chars.
func shortScanID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func init() {
	historyCmd.Flags().StringP("key", "k", "", "Only show scans with this checkpoint key")
	historyCmd.Flags().Int("limit", 10, "Maximum number of scans to display")
	rootCmd.AddCommand(historyCmd)
}
