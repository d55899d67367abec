package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/infrastructure/sqlite"
)

var importFromCatalog bool

var importCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Load records into the local SQLite store",
	Long: `Load records into the local SQLite store. Records already in the store
are updated in place unless they were merged away by an earlier live run.

Examples:
  spiritdedup import scraped.json
  spiritdedup import --catalog`,
	Args: func(cmd *cobra.Command, args []string) error {
		if importFromCatalog {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			records []domain.Record
			err     error
		)
		if importFromCatalog {
			client, cerr := newCatalogClient()
			if cerr != nil {
				return cerr
			}
			records, err = client.FetchRecords(ctx)
		} else {
			records, err = loadRecordsFile(args[0])
		}
		if err != nil {
			return err
		}

		db, err := sqlite.Open(cfg.Database.Path, logger.Named("sqlite"))
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.UpsertRecords(ctx, records)
		if err != nil {
			return err
		}
		logger.Info("import complete", zap.Int("records", n), zap.String("db", cfg.Database.Path))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d records into %s\n", green("✓"), n, cfg.Database.Path)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importFromCatalog, "catalog", false, "fetch records from the upstream catalog API instead of a file")
}
