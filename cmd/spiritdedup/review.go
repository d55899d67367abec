package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/infrastructure/sqlite"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List pairs queued for manual review",
	Long: `List the pairs a live run flagged for review, oldest first.

Examples:
  spiritdedup review
  spiritdedup review --limit 20
  spiritdedup review resolve bt-1 bt-2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := sqlite.Open(cfg.Database.Path, logger.Named("sqlite"))
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.PendingReviews(ctx, reviewLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "No pairs awaiting review")
			return nil
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("=== %d pairs awaiting review ===", len(items))))
		for _, item := range items {
			fmt.Fprintf(w, "\n%s  %.1f%% (%s)\n", domain.PairKey(item.IDA, item.IDB), item.Score*100, item.Confidence)
			describeRecord(ctx, w, db, item.IDA)
			describeRecord(ctx, w, db, item.IDB)
			if item.Details != "" {
				fmt.Fprintf(w, "  %s\n", item.Details)
			}
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <id1> <id2>",
	Short: "Mark a queued pair as decided",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sqlite.Open(cfg.Database.Path, logger.Named("sqlite"))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ResolveReview(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s resolved %s\n", green("✓"), domain.PairKey(args[0], args[1]))
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum pairs to list")
	reviewCmd.AddCommand(resolveCmd)
}

// describeRecord prints one side of a queued pair, following merges made
// after the pair was queued
func describeRecord(ctx context.Context, w io.Writer, db *sqlite.DB, id string) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	rec, err := db.GetRecord(ctx, id)
	if err == nil {
		fmt.Fprintf(w, "  %-12s %s %s\n", id, rec.Name, gray(rec.Brand))
		return
	}
	if errors.Is(err, domain.ErrRecordNotFound) {
		if into, merr := db.MergedInto(ctx, id); merr == nil && into != "" {
			fmt.Fprintf(w, "  %-12s %s\n", id, gray("merged into "+into))
			return
		}
	}
	fmt.Fprintf(w, "  %-12s %s\n", id, gray("unavailable"))
}
