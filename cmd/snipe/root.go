package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/config"
	"github.com/hakim/snipe/internal/logger"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "snipe",
	Short: "Find unregistered and soon-expiring short domains",
	Long: `Snipe walks a space of candidate domain names and asks each TLD's registry,
over RDAP with a WHOIS fallback, whether the name is taken.

Candidates come from one of several generators: every N-letter label, a
dictionary word list, pronounceable consonant/vowel patterns or readable
labels. Progress is checkpointed after every chunk so an interrupted scan
continues exactly where it stopped with --resume.

Examples:
  snipe --tld com,io
  snipe -w --tld ai --concurrency 10 --rate 1000
  snipe -p --alphanumeric --tld dev --resume
  snipe --words-file names.txt --length 6 --tld co`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}

		if skipConfig[cmd.Name()] {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := logger.ParseLevel(cfg.Log.Level)
		if verbose {
			level = logger.LevelDebug
		}
		if cfg.Log.Format == "json" {
			log = logger.New(os.Stderr, level, cfg.Telemetry.ServiceName, nil)
		} else {
			log = logger.NewConsole(os.Stderr, level, cfg.Telemetry.ServiceName, nil)
		}
		return nil
	},
	RunE: runScan,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search for snipe.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	// Version flag
	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] Error: %v\n", err)
	}
	return err
}
