package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [domain...]",
	Short: "Check a list of suggested domains",
	Long: `Check individual domains, typically names proposed by a language model or
another collaborator, instead of scanning a generated space.

Domains come from the arguments and from --input, a JSON file (or "-" for
stdin) holding either an array or an object with a "domains" array. Each
entry is a string or an object with "domain", "score" and "rationale".
Results are printed in input order; --output saves them as a checkpoint that
recheck and diff understand.

Examples:
  snipe check zapto.io kinda.ai
  snipe check --input suggestions.json --output scans/suggestions.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := cmd.Flags()
		input, _ := fs.GetString("input")
		output, _ := fs.GetString("output")

		// Step 1: Collect suggestions
		var sugs []pipeline.Suggestion
		if input != "" {
			decoded, err := readSuggestions(input)
			if err != nil {
				return err
			}
			sugs = append(sugs, decoded...)
		}
		for _, arg := range args {
			sugs = append(sugs, pipeline.Suggestion{Domain: arg})
		}
		if len(sugs) == 0 {
			return fmt.Errorf("no domains given; pass them as arguments or with --input")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Step 2: Wire collaborators
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		// Step 3: Probe
		fmt.Printf("[*] Checking %d suggestion(s)\n", len(sugs))
		rep, err := pipeline.CheckSuggestions(ctx, sugs, pipeline.SuggestionConfig{
			Rate:          rateFromFlags(fs, cfg),
			RequeueLimit:  cfg.Scan.RequeueLimit,
			MaxBatchDelay: cfg.Scan.MaxBatchDelay,
			OutputPath:    output,
		}, a.deps(nil))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("check failed: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			fmt.Println("[!] Check interrupted; showing completed results")
		}

		for _, inv := range rep.Invalid {
			fmt.Printf("[!] Skipped %s: %v\n", inv.Domain, inv.Err)
		}

		// Step 4: Print table
		printResults(os.Stdout, rep.Results)

		if rep.Path != "" {
			fmt.Printf("\n[+] Results saved to %s\n", rep.Path)
		}
		return nil
	},
}

func readSuggestions(path string) ([]pipeline.Suggestion, error) {
	if path == "-" {
		return pipeline.DecodeSuggestions(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return pipeline.DecodeSuggestions(f)
}

func printResults(out io.Writer, results []models.ScanResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Domain\tVerdict\tVia\tRegistrar\tScore")
	fmt.Fprintln(w, "------\t-------\t---\t---------\t-----")
	for _, r := range results {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.2f", *r.Score)
		}
		registrar := r.Registrar
		if registrar == "" {
			registrar = "-"
		}
		via := string(r.Protocol)
		if via == "" {
			via = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Domain, verdictLabel(r.Status, r.Expiry), via, registrar, score)
	}
	w.Flush()
}

// verdictLabel renders a verdict with its expiry date when known.
func verdictLabel(status models.VerdictStatus, expiry *time.Time) string {
	if status == models.VerdictRegistered && expiry != nil {
		return fmt.Sprintf("registered (expires %s)", expiry.UTC().Format("2006-01-02"))
	}
	return string(status)
}

func init() {
	addRateFlags(checkCmd.Flags())
	checkCmd.Flags().StringP("input", "i", "", `Suggestions JSON file, or "-" for stdin`)
	checkCmd.Flags().StringP("output", "o", "", "Save results as a checkpoint at this path")
	rootCmd.AddCommand(checkCmd)
}
