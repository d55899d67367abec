package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/config"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "spiritdedup",
	Short: "Find and merge duplicate spirit records",
	Long: `spiritdedup finds duplicate records in a scraped spirits catalog.

Commands:
  import   Load records from a JSON file into the local store
  analyze  Dry run: score duplicates and export reports, nothing is changed
  apply    Live run: merge duplicates in the store and queue pairs for review
  review   List and resolve pairs queued for manual review
  compare  Show the similarity breakdown of two product names`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.Development = true
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		logger, err = cfg.Logging.NewLogger()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(compareCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
