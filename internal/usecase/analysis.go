package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
	"github.com/spiritlens/backend/internal/similarity"
)

const (
	priceCompatiblePercent = 20.0 // pair price spread still considered one product
	improvementPoints      = 2.0  // data quality points per improved field
)

// buildReport fills matches, summary, clusters, merge plan and impact
func (s *DedupService) buildReport(report *Report, valid []domain.Record, candidates []domain.MatchCandidate) {
	report.Matches = make([]DetailedMatch, 0, len(candidates))
	for _, c := range candidates {
		report.Matches = append(report.Matches, detailMatch(c))
	}

	sum := &report.Summary
	sum.RecordsAnalyzed = len(valid)
	sum.InvalidRecords = len(report.Invalid)
	sum.DuplicatesFound = len(candidates)
	counts := make(map[domain.Action]int)
	for _, c := range candidates {
		counts[c.RecommendedAction]++
		if c.Pass == "exact" {
			sum.ExactMatches++
		} else {
			sum.FuzzyMatches++
		}
	}
	sum.PotentialMerges = counts[domain.ActionMerge]
	sum.FlaggedForReview = counts[domain.ActionFlagForReview]
	sum.Ignored = counts[domain.ActionIgnore]
	for action, n := range counts {
		s.metrics.CandidatesFound(string(action), n)
	}

	report.Clusters = buildClusters(report.Matches)
	report.MergePlan = s.planMerges(candidates, valid, report.PriceGroups)
	report.Impact, sum.DataQualityImprovement = assessImpact(report.Matches, report.MergePlan, len(valid))
}

func detailMatch(c domain.MatchCandidate) DetailedMatch {
	analysis := MatchAnalysis{
		Name:       analyzeNames(&c),
		Brand:      analyzeBrands(&c),
		Attributes: analyzeAttributes(&c),
		Price:      analyzePrices(c.A.Price, c.B.Price),
	}
	return DetailedMatch{
		MatchCandidate:        c,
		Analysis:              analysis,
		MergePreview:          previewMerge(c.A, c.B),
		ConfidenceExplanation: explainConfidence(&c, &analysis),
	}
}

func analyzeNames(c *domain.MatchCandidate) NameAnalysis {
	n1 := similarity.Normalize(c.A.Name, similarity.Config{})
	n2 := similarity.Normalize(c.B.Name, similarity.Config{})
	t1, t2 := strings.Fields(n1), strings.Fields(n2)
	in1, in2 := tokenSet(t1), tokenSet(t2)

	matching := []string{}
	differences := []string{}
	seen := make(map[string]bool)
	for _, t := range t1 {
		if seen[t] {
			continue
		}
		seen[t] = true
		if in2[t] {
			matching = append(matching, t)
		} else {
			differences = append(differences, t)
		}
	}
	for _, t := range t2 {
		if !in1[t] && !seen[t] {
			seen[t] = true
			differences = append(differences, t)
		}
	}

	return NameAnalysis{
		Original1:          c.A.Name,
		Original2:          c.B.Name,
		Normalized1:        n1,
		Normalized2:        n2,
		Similarity:         c.Breakdown.NameSimilarity,
		MatchingTokens:     matching,
		Differences:        differences,
		VariantDifferences: normalize.Variant(c.A.Name).Differences(normalize.Variant(c.B.Name)),
	}
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func analyzeBrands(c *domain.MatchCandidate) BrandAnalysis {
	return BrandAnalysis{
		Brand1:      c.A.Brand,
		Brand2:      c.B.Brand,
		Normalized1: normalize.Brand(c.A.Brand),
		Normalized2: normalize.Brand(c.B.Brand),
		SameBrand:   c.Breakdown.SameBrand,
		Similarity:  c.Breakdown.BrandSimilarity,
	}
}

func analyzeAttributes(c *domain.MatchCandidate) AttributeAnalysis {
	a, b := c.Breakdown.AttributesA, c.Breakdown.AttributesB
	p := c.Breakdown.Penalties
	return AttributeAnalysis{
		Age: AttributeCheck{
			Value1:  intValue(a.Age),
			Value2:  intValue(b.Age),
			Match:   a.Age > 0 && a.Age == b.Age,
			Penalty: p.Age,
		},
		Proof: AttributeCheck{
			Value1:  floatValue(a.Proof),
			Value2:  floatValue(b.Proof),
			Match:   a.Proof > 0 && a.Proof == b.Proof,
			Penalty: p.Proof,
		},
		Type: AttributeCheck{
			Value1: c.A.Type,
			Value2: c.B.Type,
			Match:  normalize.CompatibleType(c.A.Type) == normalize.CompatibleType(c.B.Type),
		},
		Grain: AttributeCheck{
			Value1:  a.Grain,
			Value2:  b.Grain,
			Match:   a.Grain != "" && a.Grain == b.Grain,
			Penalty: p.Grain,
		},
	}
}

func intValue(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func floatValue(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// analyzePrices treats a missing price as compatible
func analyzePrices(p1, p2 float64) PriceAnalysis {
	out := PriceAnalysis{Price1: p1, Price2: p2, Compatible: true}
	if p1 <= 0 || p2 <= 0 {
		return out
	}
	out.Difference = math.Abs(p1 - p2)
	out.VariationPercent = out.Difference / ((p1 + p2) / 2) * 100
	out.Compatible = out.VariationPercent <= priceCompatiblePercent
	return out
}

func explainConfidence(c *domain.MatchCandidate, a *MatchAnalysis) string {
	parts := []string{
		fmt.Sprintf("Overall similarity: %.1f%%", c.Similarity*100),
		fmt.Sprintf("Name similarity: %.1f%%", a.Name.Similarity*100),
	}
	if c.Breakdown.KeyMatch != "" {
		parts = append(parts, fmt.Sprintf("Normalized names match (%s key)", c.Breakdown.KeyMatch))
	}
	if c.Breakdown.TFIDFApplied {
		parts = append(parts, fmt.Sprintf("Description similarity: %.1f%%", c.Breakdown.TFIDFSimilarity*100))
	}

	switch {
	case a.Brand.SameBrand:
		parts = append(parts, "Same brand detected")
	case a.Brand.Similarity > 0:
		parts = append(parts, fmt.Sprintf("Brand similarity: %.1f%%", a.Brand.Similarity*100))
	}

	switch {
	case a.Attributes.Age.Match:
		parts = append(parts, "Age statements match")
	case a.Attributes.Age.Penalty > 0:
		parts = append(parts, fmt.Sprintf("Age mismatch penalty: %.1f%%", a.Attributes.Age.Penalty*100))
	}
	if c.Breakdown.Penalties.Liqueur > 0 {
		parts = append(parts, "Liqueur paired with a straight spirit")
	}
	if c.Breakdown.AttributePenalty > 0 {
		parts = append(parts, fmt.Sprintf("Total attribute penalty: %.1f%%", c.Breakdown.AttributePenalty*100))
	}

	if a.Attributes.Type.Match {
		parts = append(parts, "Spirit types match")
	} else {
		parts = append(parts, "Spirit types differ")
	}

	switch {
	case a.Price.Compatible:
		parts = append(parts, "Prices are compatible")
	case a.Price.VariationPercent > 0:
		parts = append(parts, fmt.Sprintf("Price variation: %.1f%%", a.Price.VariationPercent))
	}
	return strings.Join(parts, "; ")
}

// previewMerge shows the merged field set the pair would produce
func previewMerge(a, b domain.Record) MergePreview {
	survivor, loser := chooseSurvivor(a, b)
	merged := mergeFields(survivor, loser)
	return MergePreview{
		SurvivorID:      survivor.ID,
		LoserID:         loser.ID,
		Merged:          merged,
		Improvements:    improvements(survivor, merged),
		PotentialLosses: potentialLosses(survivor, loser),
	}
}

func improvements(before, after domain.Record) []string {
	out := []string{}
	switch {
	case before.Description == "" && after.Description != "":
		out = append(out, "Added description")
	case len(after.Description) > len(before.Description):
		out = append(out, "Enhanced description")
	}
	for _, f := range []struct {
		added bool
		label string
	}{
		{before.Brand == "" && after.Brand != "", "Added brand"},
		{before.Type == "" && after.Type != "", "Added type"},
		{before.Category == "" && after.Category != "", "Added category"},
		{before.ABV <= 0 && after.ABV > 0, "Added ABV"},
		{before.OriginCountry == "" && after.OriginCountry != "", "Added origin country"},
		{before.Region == "" && after.Region != "", "Added region"},
		{!before.HasPrice() && after.HasPrice(), "Added price information"},
		{before.ImageURL == "" && after.ImageURL != "", "Added image"},
		{before.Volume == "" && after.Volume != "", "Added volume"},
	} {
		if f.added {
			out = append(out, f.label)
		}
	}
	if n := len(after.FlavorProfile) - len(before.FlavorProfile); n > 0 {
		out = append(out, fmt.Sprintf("Added %d flavor profile entries", n))
	}
	return out
}

func potentialLosses(survivor, loser domain.Record) []string {
	out := []string{}
	if loser.Description != "" && survivor.Description != "" && loser.Description != survivor.Description {
		out = append(out, "Alternative description will be lost")
	}
	if loser.ImageURL != "" && survivor.ImageURL != "" && loser.ImageURL != survivor.ImageURL {
		out = append(out, "Alternative image URL will be lost")
	}
	if loser.HasPrice() && survivor.HasPrice() && loser.Price != survivor.Price {
		out = append(out, "Alternative price information will be lost")
	}
	return out
}

// assessImpact estimates removed records, enhanced fields and the data
// quality gain (two points per improvement, capped at 100)
func assessImpact(matches []DetailedMatch, plan []domain.MergePlan, records int) (Impact, float64) {
	impact := Impact{
		RecordsToRemove:         len(plan),
		PotentialDataLoss:       []string{},
		DataQualityImprovements: []string{},
	}
	if records > 0 {
		impact.DuplicationReductionPercent = float64(len(plan)) / float64(records) * 100
	}

	lossSeen := make(map[string]bool)
	gainSeen := make(map[string]bool)
	points := 0.0
	for _, m := range matches {
		points += float64(len(m.MergePreview.Improvements)) * improvementPoints
		if m.RecommendedAction == domain.ActionMerge {
			impact.FieldsToEnhance += len(m.MergePreview.Improvements)
		}
		for _, l := range m.MergePreview.PotentialLosses {
			if !lossSeen[l] {
				lossSeen[l] = true
				impact.PotentialDataLoss = append(impact.PotentialDataLoss, l)
			}
		}
		for _, g := range m.MergePreview.Improvements {
			if !gainSeen[g] {
				gainSeen[g] = true
				impact.DataQualityImprovements = append(impact.DataQualityImprovements, g)
			}
		}
	}
	return impact, math.Min(100, points)
}
