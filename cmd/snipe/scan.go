package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/candidates"
	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/pipeline"
	"github.com/hakim/snipe/internal/report"
	"github.com/hakim/snipe/internal/storage"
)

func runScan(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()

	// ── 1. Read all flags ──────────────────────────────────────────────────────
	length, _ := fs.GetInt("length")
	words, _ := fs.GetBool("words")
	readable, _ := fs.GetBool("readable")
	pronounceable, _ := fs.GetBool("pronounceable")
	six, _ := fs.GetBool("six")
	alnum, _ := fs.GetBool("alphanumeric")
	wordsFile, _ := fs.GetString("words-file")
	tldFlag, _ := fs.GetString("tld")
	outputDir, _ := fs.GetString("output")
	resume, _ := fs.GetBool("resume")
	preferWhois, _ := fs.GetBool("prefer-whois")
	keepRegistered, _ := fs.GetBool("keep-registered")
	webhookURL, _ := fs.GetString("notify-webhook")
	noReport, _ := fs.GetBool("no-report")

	// ── 2. Resolve mode and candidate source ───────────────────────────────────
	mode, err := pipeline.ResolveMode(pipeline.ModeFlags{
		Length:        length,
		LengthSet:     fs.Changed("length"),
		Words:         words,
		Readable:      readable,
		Pronounceable: pronounceable,
		Six:           six,
		Alphanumeric:  alnum,
		WordsFile:     wordsFile,
	})
	if err != nil {
		return err
	}

	var src candidates.Source
	if wordsFile != "" {
		src, mode, err = pipeline.LoadWordList(afero.NewOsFs(), wordsFile, mode)
		if err != nil {
			return err
		}
		fmt.Printf("[*] Loaded %d candidates from %s\n", src.Len(), wordsFile)
	}

	tlds := splitCSV(tldFlag)
	if len(tlds) == 0 {
		tlds = cfg.Scan.TLDs
	}
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if webhookURL == "" {
		webhookURL = cfg.Notify.WebhookURL
	}
	window := expiringWindow(fs, cfg)

	// ── 3. Signal handling ─────────────────────────────────────────────────────
	// The first SIGINT/SIGTERM stops the scan after the in-flight batch.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 4. Wire collaborators ──────────────────────────────────────────────────
	a, err := newApp(ctx, cfg, preferWhois)
	if err != nil {
		return err
	}
	defer a.close()

	d := a.deps(openIndex(cfg.DBPath))

	// ── 5. Build ScanConfig ────────────────────────────────────────────────────
	lastPct := -1
	scanCfg := pipeline.ScanConfig{
		Mode:           mode,
		Source:         src,
		TLDs:           tlds,
		Rate:           rateFromFlags(fs, cfg),
		BatchSize:      intFlag(fs, "batch-size", cfg.Scan.BatchSize),
		OutputDir:      outputDir,
		Resume:         resume,
		KeepRegistered: keepRegistered || cfg.Scan.KeepRegistered,
		ExpiringWithin: window,
		RequeueLimit:   cfg.Scan.RequeueLimit,
		MaxBatchDelay:  cfg.Scan.MaxBatchDelay,
		OnProgress: func(p pipeline.Progress) {
			log.Debug(ctx, "chunk committed", "cursor", p.Cursor, "total", p.Total, "available", p.Counts.Available)
			pct := 100
			if p.Total > 0 {
				pct = int(p.Cursor * 100 / p.Total)
			}
			if pct != lastPct {
				lastPct = pct
				fmt.Printf("[*] %d/%d (%d%%) available=%d registered=%d unknown=%d elapsed=%s\n",
					p.Cursor, p.Total, pct, p.Counts.Available, p.Counts.Registered, p.Counts.Unknown,
					p.Elapsed.Round(time.Second))
			}
		},
	}

	// ── 6. Run the scan ────────────────────────────────────────────────────────
	fmt.Printf("[*] Scanning %s across %v (concurrency %d, %dms between batches)\n",
		mode, tlds, scanCfg.Rate.Concurrency, scanCfg.Rate.BatchDelayMs)

	sum, err := pipeline.RunScan(ctx, scanCfg, d)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	// ── 7. Markdown report (non-fatal) ─────────────────────────────────────────
	if !noReport {
		reportPath := storage.ReportPath(sum.CheckpointPath)
		if err := report.WriteScanReport(sum.Checkpoint, window, reportPath); err != nil {
			fmt.Printf("[!] Warning: failed to write report: %v\n", err)
		} else {
			fmt.Printf("[+] Report written to %s\n", reportPath)
		}
	}

	// ── 8. Webhook notification (non-fatal) ────────────────────────────────────
	if webhookURL != "" {
		notifyCfg := pipeline.NotifyConfig{WebhookURL: webhookURL}
		if notifyErr := notifyCfg.SendCompletion(context.WithoutCancel(ctx), sum); notifyErr != nil {
			fmt.Printf("[!] Warning: webhook notification failed: %v\n", notifyErr)
		} else {
			fmt.Printf("[+] Completion notification sent to %s\n", webhookURL)
		}
	}

	// ── 9. Print final summary ─────────────────────────────────────────────────
	printSummary(sum)
	return nil
}

func printSummary(sum *pipeline.ScanSummary) {
	fmt.Println()
	if sum.Status == models.StatusComplete {
		fmt.Printf("[+] Scan complete!\n")
	} else {
		fmt.Printf("[!] Scan %s; rerun with --resume to continue\n", sum.Status)
	}
	fmt.Printf("    Scan ID:     %s\n", sum.ScanID)
	fmt.Printf("    Checkpoint:  %s\n", sum.CheckpointPath)
	fmt.Printf("    Progress:    %d/%d\n", sum.Cursor, sum.Total)
	fmt.Printf("    Probed:      %d (available %d, registered %d, unknown %d, skipped %d)\n",
		sum.Counts.Probed, sum.Counts.Available, sum.Counts.Registered, sum.Counts.Unknown, sum.Counts.Skipped)
	if sum.Counts.Throttled > 0 {
		fmt.Printf("    Throttled:   %d\n", sum.Counts.Throttled)
	}
	fmt.Printf("    Elapsed:     %s\n", sum.Elapsed.Round(time.Second))

	if len(sum.Available) > 0 {
		fmt.Println()
		fmt.Printf("[+] Available (%d):\n", len(sum.Available))
		for _, r := range sum.Available {
			fmt.Printf("    %s\n", r.Domain)
		}
	}
	if len(sum.Expiring) > 0 {
		fmt.Println()
		fmt.Printf("[+] Expiring soon (%d):\n", len(sum.Expiring))
		for _, r := range sum.Expiring {
			fmt.Printf("    %-30s %s\n", r.Domain, r.Expiry.UTC().Format("2006-01-02"))
		}
	}
}

func init() {
	fs := rootCmd.Flags()
	fs.IntP("length", "l", 4, "Label length; overrides the mode's default length")
	fs.BoolP("words", "w", false, "Scan 5-letter dictionary words")
	fs.BoolP("readable", "R", false, "Scan 5-letter readable labels")
	fs.BoolP("pronounceable", "p", false, "Scan 4-letter pronounceable patterns")
	fs.Bool("six", false, "Scan 6-letter pronounceable patterns")
	fs.BoolP("alphanumeric", "a", false, "Also scan shorter labels with a trailing digit")
	fs.String("words-file", "", "Scan words from a file, one per line (implies words mode)")
	fs.StringP("tld", "t", "", "Comma-separated TLDs to check (default from config: com)")
	addRateFlags(fs)
	fs.Int("batch-size", 100, "Pairs per checkpoint commit")
	fs.Int("expiring", 7, "Report registered domains expiring within this many days")
	fs.StringP("output", "o", "", "Directory for checkpoints and reports (default from config)")
	fs.Bool("resume", false, "Continue from the matching checkpoint")
	fs.Bool("prefer-whois", false, "Ask WHOIS before RDAP")
	fs.Bool("keep-registered", false, "Record every registered domain, not only expiring ones")
	fs.String("notify-webhook", "", "HTTP webhook URL to POST a completion summary to")
	fs.Bool("no-report", false, "Skip the markdown report")

	rootCmd.MarkFlagsMutuallyExclusive("words", "readable", "pronounceable", "six")
	rootCmd.MarkFlagsMutuallyExclusive("words-file", "readable")
	rootCmd.MarkFlagsMutuallyExclusive("words-file", "pronounceable")
	rootCmd.MarkFlagsMutuallyExclusive("words-file", "six")
}
