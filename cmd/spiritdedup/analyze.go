package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spiritlens/backend/internal/report"
	"github.com/spiritlens/backend/internal/usecase"
)

var (
	analyzeInput     string
	analyzeSource    string
	analyzeExportDir string
	analyzeYAML      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Dry run: find duplicates and export reports",
	Long: `Run every dedup pass without changing anything and export the reports:
a text summary, a CSV of matches, detailed JSON and the similarity clusters.

Sources:
  file     records from --input
  store    the local SQLite store (default without --input)
  catalog  the upstream catalog API

Examples:
  spiritdedup analyze --input scraped.json
  spiritdedup analyze --source catalog --export-dir out --yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, db, err := resolveSource(analyzeSource, analyzeInput)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		service, cleanup, err := newService(ctx, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := service.AnalyzeSource(ctx, src, usecase.Options{Mode: usecase.ModeDryRun})
		if err != nil {
			return err
		}
		return exportAndPrint(cmd.OutOrStdout(), rep)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "JSON file of records")
	analyzeCmd.Flags().StringVar(&analyzeSource, "source", "", "record source: file, store or catalog")
	analyzeCmd.Flags().StringVar(&analyzeExportDir, "export-dir", "", "report directory (default pipeline.export_dir)")
	analyzeCmd.Flags().BoolVar(&analyzeYAML, "yaml", false, "also export the full report as YAML")
}

func exportAndPrint(w io.Writer, rep *usecase.Report) error {
	dir := analyzeExportDir
	if dir == "" {
		dir = cfg.Pipeline.ExportDir
	}
	paths, err := report.ExportAll(dir, rep, time.Now(), analyzeYAML)
	if err != nil {
		return err
	}
	printSummary(w, rep)
	printPaths(w, paths)
	return nil
}

func printSummary(w io.Writer, rep *usecase.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	title := "Dry-Run Deduplication"
	if rep.Mode == usecase.ModeLive {
		title = "Live Deduplication"
	}
	fmt.Fprintf(w, "\n%s\n", cyan("=== "+title+" ==="))
	fmt.Fprintf(w, "%s %s\n\n", gray("run"), rep.RunID)

	s := rep.Summary
	fmt.Fprintf(w, "Records analyzed:     %d\n", s.RecordsAnalyzed)
	if s.InvalidRecords > 0 {
		fmt.Fprintf(w, "Invalid records:      %s\n", red(s.InvalidRecords))
	}
	fmt.Fprintf(w, "Duplicates found:     %d (%d exact, %d fuzzy)\n", s.DuplicatesFound, s.ExactMatches, s.FuzzyMatches)
	fmt.Fprintf(w, "Auto-merge:           %s\n", green(s.PotentialMerges))
	fmt.Fprintf(w, "Flagged for review:   %s\n", yellow(s.FlaggedForReview))
	fmt.Fprintf(w, "Comparisons:          %d (%.1f%% saved by blocking)\n", s.ComparisonsPerformed, rep.Blocking.ReductionPercent)
	if len(rep.PairErrors) > 0 {
		fmt.Fprintf(w, "Pair errors:          %s\n", red(len(rep.PairErrors)))
	}

	if rep.Apply != nil {
		a := rep.Apply
		fmt.Fprintf(w, "\n%s\n", cyan("Applied"))
		fmt.Fprintf(w, "Merges applied:       %s\n", green(a.Applied))
		fmt.Fprintf(w, "Merge conflicts:      %s\n", yellow(a.Conflicts))
		fmt.Fprintf(w, "Queued for review:    %d (%d already queued)\n", a.Queued, a.AlreadyQueued)
	}
	fmt.Fprintf(w, "\n%s %.2fs\n", gray("took"), rep.Timings.Total.Seconds())
}

func printPaths(w io.Writer, paths report.Paths) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(w, "\nReports:\n")
	for _, p := range []string{paths.Summary, paths.Matches, paths.Detailed, paths.Clusters, paths.YAML} {
		if p != "" {
			fmt.Fprintf(w, "  %s %s\n", gray("→"), p)
		}
	}
}
