package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hakim/snipe/internal/config"
	"github.com/hakim/snipe/internal/storage"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize snipe with default configuration",
	Long: `Creates a default configuration file (snipe.yaml), the output directory for
checkpoints and reports, and the database that keeps the scan history.

This is typically the first command you run when setting up snipe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(initDir, "snipe.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		if err := storage.EnsureDir(initDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", initDir, err)
		}

		// Create default config
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Printf("Created %s with default configuration\n", configPath)

		// Load the config we just created to get paths
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Create output directory
		outputDir := resolve(initDir, loaded.OutputDir)
		if err := storage.EnsureDir(outputDir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		fmt.Printf("Created output directory: %s\n", outputDir)

		// Initialize database
		dbPath := resolve(initDir, loaded.DBPath)
		if _, err := storage.NewStore(dbPath); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		fmt.Printf("Initialized database: %s\n", dbPath)

		// Print success message
		fmt.Println()
		fmt.Println("snipe initialized successfully!")
		fmt.Println("Run 'snipe registries' to see the known TLDs, or 'snipe --tld com' to start a scan.")

		return nil
	},
}

// resolve joins relative config paths onto the init directory
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	rootCmd.AddCommand(initCmd)
}
