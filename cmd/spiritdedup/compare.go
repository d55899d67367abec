package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/similarity"
)

var (
	compareBrandA string
	compareBrandB string
)

var compareCmd = &cobra.Command{
	Use:   "compare <name1> <name2>",
	Short: "Show the similarity breakdown of two product names",
	Long: `Score two product names with the fuzzy similarity library and the match
scorer, using the configured weights and thresholds.

Examples:
  spiritdedup compare "Wild Turkey 101" "Wyld Turkey 101 Bourbon"
  spiritdedup compare "Bourbon" "Bourbon 750ml" --brand-a "Buffalo Trace" --brand-b "Buffalo Trace"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, cleanup, err := newService(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer cleanup()

		result := service.Similarity(args[0], args[1])
		match, err := service.Compare(
			domain.Record{ID: "a", Name: args[0], Brand: compareBrandA},
			domain.Record{ID: "b", Name: args[1], Brand: compareBrandB},
		)
		if err != nil {
			return err
		}
		printComparison(cmd.OutOrStdout(), result, match)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareBrandA, "brand-a", "", "brand of the first product")
	compareCmd.Flags().StringVar(&compareBrandB, "brand-b", "", "brand of the second product")
}

func printComparison(w io.Writer, result similarity.Result, match *domain.MatchCandidate) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Similarity ==="))
	fmt.Fprintf(w, "%s %q\n%s %q\n\n", gray("normalized 1:"), result.Normalized1, gray("normalized 2:"), result.Normalized2)
	b := result.Breakdown
	fmt.Fprintf(w, "  edit          %.3f\n", b.Edit)
	fmt.Fprintf(w, "  jaro-winkler  %.3f\n", b.JaroWinkler)
	fmt.Fprintf(w, "  n-gram        %.3f\n", b.Ngram)
	fmt.Fprintf(w, "  phonetic      %.3f\n", b.Phonetic)
	fmt.Fprintf(w, "  token         %.3f\n", b.Token)
	if b.KeyMatch {
		fmt.Fprintf(w, "  %s\n", green("identity keys match"))
	}
	fmt.Fprintf(w, "\nSimilarity: %.1f%% (%s confidence)\n", result.Value*100, result.Confidence)

	if match == nil {
		fmt.Fprintf(w, "Match:      %s\n", gray("no match"))
		return
	}
	actionColor := color.New(color.FgYellow).SprintFunc()
	if match.RecommendedAction == domain.ActionMerge {
		actionColor = green
	}
	fmt.Fprintf(w, "Match:      %.1f%% %s, %s\n", match.Similarity*100, match.MatchType, actionColor(match.RecommendedAction))
	if p := match.Breakdown.AttributePenalty; p > 0 {
		fmt.Fprintf(w, "Penalty:    %.2f\n", p)
	}
}
