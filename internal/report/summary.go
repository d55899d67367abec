package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/spiritlens/backend/internal/usecase"
)

// WriteSummary writes the human-readable run summary
func WriteSummary(w io.Writer, r *usecase.Report) error {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	s := &r.Summary

	title := "DRY-RUN DEDUPLICATION ANALYSIS SUMMARY"
	if r.Mode == usecase.ModeLive {
		title = "LIVE DEDUPLICATION SUMMARY"
	}
	line(title)
	line(strings.Repeat("=", 50))
	line("  Run ID: %s", r.RunID)
	line("  Generated: %s", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	line("")

	line("OVERVIEW:")
	line("  Total records analyzed: %d", s.RecordsAnalyzed)
	if s.InvalidRecords > 0 {
		line("  Invalid records skipped: %d", s.InvalidRecords)
	}
	line("  Total duplicates found: %d (%d exact, %d fuzzy)", s.DuplicatesFound, s.ExactMatches, s.FuzzyMatches)
	line("  Comparisons performed: %d", s.ComparisonsPerformed)
	if len(r.PairErrors) > 0 {
		line("  Failed comparisons: %d", len(r.PairErrors))
	}
	line("  Processing time: %.2fs", r.Timings.Total.Seconds())
	line("")

	line("RECOMMENDED ACTIONS:")
	line("  Auto-merge candidates: %d", s.PotentialMerges)
	line("  Flag for review: %d", s.FlaggedForReview)
	line("  Ignore (low confidence): %d", s.Ignored)
	line("")

	if r.Blocking.Blocks > 0 {
		line("BLOCKING OPTIMIZATION:")
		line("  Total blocks created: %d", r.Blocking.Blocks)
		line("  Comparison reduction: %.1f%%", r.Blocking.ReductionPercent)
		line("  Largest block size: %d records", r.Blocking.LargestBlock)
		line("")
	}

	if r.PriceSummary.TotalGroups > 0 {
		line("PRICE VARIATION:")
		line("  Price groups: %d", r.PriceSummary.TotalGroups)
		line("  Average variation: %.1f%%", r.PriceSummary.AverageVariation*100)
		line("  High variation groups: %d", r.PriceSummary.HighVariationGroups)
		line("")
	}

	line("IMPACT ASSESSMENT:")
	line("  Records to be removed: %d", r.Impact.RecordsToRemove)
	line("  Data fields to be enhanced: %d", r.Impact.FieldsToEnhance)
	line("  Estimated duplication reduction: %.1f%%", r.Impact.DuplicationReductionPercent)
	line("  Estimated data quality improvement: %.1f%%", s.DataQualityImprovement)
	line("")

	if len(r.Impact.DataQualityImprovements) > 0 {
		line("DATA QUALITY IMPROVEMENTS:")
		for _, imp := range r.Impact.DataQualityImprovements {
			line("  - %s", imp)
		}
		line("")
	}
	if len(r.Impact.PotentialDataLoss) > 0 {
		line("POTENTIAL DATA LOSS:")
		for _, loss := range r.Impact.PotentialDataLoss {
			line("  - %s", loss)
		}
		line("")
	}

	if r.Apply != nil {
		line("APPLIED CHANGES:")
		line("  Merges applied: %d", r.Apply.Applied)
		line("  Merge conflicts skipped: %d", r.Apply.Conflicts)
		line("  Pairs queued for review: %d", r.Apply.Queued)
		line("  Pairs already queued: %d", r.Apply.AlreadyQueued)
		line("")
	}

	line("SIMILARITY CLUSTERS:")
	line("  Total clusters identified: %d", len(r.Clusters))
	for i, c := range r.Clusters {
		line("  Cluster %d: %d records, avg similarity %.1f%%", i+1, len(c.Members), c.Similarity*100)
		line("    Recommended action: %s", strings.ReplaceAll(string(c.RecommendedAction), "_", " "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
