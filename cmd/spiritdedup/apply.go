package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/infrastructure/sqlite"
	"github.com/spiritlens/backend/internal/usecase"
)

var (
	applySource  string
	applyConfirm bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Live run: merge duplicates in the store",
	Long: `Run every dedup pass against the local SQLite store, apply the merge plan
and queue flagged pairs for review. Merges whose records changed since the
plan was built are skipped and reported as conflicts.

With --source catalog the upstream catalog is imported into the store first.

Run 'spiritdedup analyze' first and review its reports.

Examples:
  spiritdedup apply --yes
  spiritdedup apply --source catalog --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !applyConfirm {
			return fmt.Errorf("%w: a live run modifies %s; pass --yes to continue", domain.ErrInvalidRequest, cfg.Database.Path)
		}

		db, err := sqlite.Open(cfg.Database.Path, logger.Named("sqlite"))
		if err != nil {
			return err
		}
		defer db.Close()

		switch applySource {
		case sourceStore, "":
		case sourceCatalog:
			client, err := newCatalogClient()
			if err != nil {
				return err
			}
			records, err := client.FetchRecords(ctx)
			if err != nil {
				return err
			}
			n, err := db.UpsertRecords(ctx, records)
			if err != nil {
				return err
			}
			logger.Info("catalog imported", zap.Int("records", n))
		default:
			return fmt.Errorf("%w: unknown source %q (want store or catalog)", domain.ErrInvalidRequest, applySource)
		}

		service, cleanup, err := newService(ctx, db)
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := service.AnalyzeSource(ctx, db, usecase.Options{Mode: usecase.ModeLive})
		if err != nil {
			if rep != nil {
				printSummary(cmd.OutOrStdout(), rep)
			}
			return err
		}
		return exportAndPrint(cmd.OutOrStdout(), rep)
	},
}

func init() {
	applyCmd.Flags().StringVar(&applySource, "source", sourceStore, "record source: store or catalog")
	applyCmd.Flags().StringVar(&analyzeExportDir, "export-dir", "", "report directory (default pipeline.export_dir)")
	applyCmd.Flags().BoolVar(&analyzeYAML, "yaml", false, "also export the full report as YAML")
	applyCmd.Flags().BoolVarP(&applyConfirm, "yes", "y", false, "confirm the live run")
}
