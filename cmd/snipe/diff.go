package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/diff"
	"github.com/hakim/snipe/internal/report"
	"github.com/hakim/snipe/internal/storage"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old.json> <new.json>",
	Short: "Compare two results files and report what changed",
	Long: `Compare two checkpoints or results files and list the domains that became
available, stopped being available, had their expiry moved or entered the
expiring window.

Examples:
  snipe diff scans/old.json scans/words5_com_c20_r500.json
  snipe diff old.json new.json --report changes.md --expiring 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportPath, _ := cmd.Flags().GetString("report")
		window := expiringWindow(cmd.Flags(), cfg)

		// Step 1: Load both checkpoints
		store := storage.NewCheckpointStore(afero.NewOsFs())
		previous, err := store.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading previous results: %w", err)
		}
		current, err := store.Load(args[1])
		if err != nil {
			return fmt.Errorf("loading current results: %w", err)
		}

		fmt.Printf("[*] Previous: %s (%d results, %d available)\n", args[0], len(previous.Results), previous.Counts.Available)
		fmt.Printf("[*] Current:  %s (%d results, %d available)\n", args[1], len(current.Results), current.Counts.Available)

		// Step 2: Compute diff
		result := diff.Compare(previous, current, window)

		// Step 3: Print
		if result.Empty() {
			fmt.Println("[*] No changes detected")
		}
		printChanges("Newly available", result.NewlyAvailable)
		printChanges("No longer available", result.NoLongerAvailable)
		printChanges("Expiry changed", result.ExpiryChanged)
		printChanges("Newly expiring", result.NewlyExpiring)

		// Step 4: Write diff markdown report
		if reportPath != "" {
			if err := report.WriteDiffReport(result, reportPath); err != nil {
				return err
			}
			fmt.Printf("[+] Diff report written to %s\n", reportPath)
		}
		return nil
	},
}

func printChanges(title string, changes []diff.Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Printf("[+] %s (%d):\n", title, len(changes))
	for _, c := range changes {
		detail := "-"
		if c.Current != nil {
			detail = verdictLabel(c.Current.Status, c.Current.Expiry)
		}
		fmt.Printf("    %-30s %s\n", c.Domain, detail)
	}
}

func init() {
	diffCmd.Flags().String("report", "", "Write a markdown diff report to this path")
	diffCmd.Flags().Int("expiring", 7, "Expiring window in days")
	rootCmd.AddCommand(diffCmd)
}
