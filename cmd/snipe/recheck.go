package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/pipeline"
)

var recheckCmd = &cobra.Command{
	Use:   "recheck <results-file>",
	Short: "Re-probe the available and soon-expiring domains of a saved scan",
	Long: `Load a checkpoint or results file, probe its available domains and every
registered domain expiring within --expiring days again, and write the
refreshed results back to the same file.

Domains whose verdict or expiry changed are listed. A domain whose recheck
is inconclusive keeps its previous result. An interrupted recheck keeps the
domains it already refreshed.

Examples:
  snipe recheck scans/words5_com_c20_r500.json
  snipe recheck scans/suggestions.json --expiring 30 --rate 1000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := cmd.Flags()
		path := args[0]

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		rep, err := pipeline.Recheck(ctx, pipeline.RecheckConfig{
			Path:          path,
			Threshold:     expiringWindow(fs, cfg),
			Rate:          rateFromFlags(fs, cfg),
			RequeueLimit:  cfg.Scan.RequeueLimit,
			MaxBatchDelay: cfg.Scan.MaxBatchDelay,
		}, a.deps(nil))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("recheck failed: %w", err)
		}
		if rep == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) {
			fmt.Printf("[!] Recheck interrupted after %d/%d domains\n", rep.Rechecked, rep.Selected)
		} else {
			fmt.Printf("[+] Rechecked %d/%d domains in %s\n", rep.Rechecked, rep.Selected, path)
		}

		if rep.Kept > 0 {
			fmt.Printf("[!] %d domain(s) gave no answer and keep their previous result\n", rep.Kept)
		}

		if len(rep.Changes) == 0 {
			fmt.Println("[*] No verdict changes")
			return nil
		}
		fmt.Printf("[+] %d change(s):\n", len(rep.Changes))
		for _, c := range rep.Changes {
			fmt.Printf("    %-30s %s -> %s\n", c.Domain, verdictLabel(c.Before.Status, c.Before.Expiry), verdictLabel(c.After.Status, c.After.Expiry))
		}
		return nil
	},
}

func init() {
	addRateFlags(recheckCmd.Flags())
	recheckCmd.Flags().Int("expiring", 7, "Also recheck registered domains expiring within this many days")
	rootCmd.AddCommand(recheckCmd)
}
