package usecase

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
	"github.com/spiritlens/backend/internal/scorer"
)

// Primary selection weights for exact-match groups
const (
	weightCompleteness   = 0.3
	weightRecency        = 0.2
	weightImage          = 0.2
	weightPrice          = 0.15
	weightDescriptionLen = 0.15

	recencyWindow        = 365 * 24 * time.Hour // newer records decay to zero over a year
	descriptionSaturates = 500                  // description length earning the full weight
)

// exactPass groups records whose aggressive name key, normalized brand and
// liqueur flag are all equal. Every non-primary member yields a merge
// candidate against the group primary and is consumed, so the fuzzy pass
// does not see it again.
func (s *DedupService) exactPass(records []domain.Record) ([]domain.MatchCandidate, map[string]bool) {
	groups := make(map[string][]int)
	for i := range records {
		key := normalize.Aggressive(records[i].Name)
		if key == "" {
			continue
		}
		liqueur := scorer.ExtractAttributes(&records[i]).Liqueur
		key += "|" + normalize.Brand(records[i].Brand) + "|" + strconv.FormatBool(liqueur)
		groups[key] = append(groups[key], i)
	}

	keys := make([]string, 0, len(groups))
	for k, members := range groups {
		if len(members) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var candidates []domain.MatchCandidate
	consumed := make(map[string]bool)
	for _, k := range keys {
		members := groups[k]
		primary := selectExactPrimary(records, members)
		for _, i := range members {
			if i == primary {
				continue
			}
			candidates = append(candidates, exactCandidate(&records[primary], &records[i]))
			consumed[records[i].ID] = true
		}
	}
	return candidates, consumed
}

func selectExactPrimary(records []domain.Record, members []int) int {
	var newest time.Time
	for _, i := range members {
		if records[i].CreatedAt.After(newest) {
			newest = records[i].CreatedAt
		}
	}

	best, bestScore := -1, -1.0
	for _, i := range members {
		score := exactScore(&records[i], newest)
		if best < 0 || score > bestScore || (score == bestScore && records[i].ID < records[best].ID) {
			best, bestScore = i, score
		}
	}
	return best
}

// exactScore ranks a record as group primary. Recency is measured against
// the newest record of the group so the result does not depend on when the
// run happens.
func exactScore(r *domain.Record, newest time.Time) float64 {
	completeness := 0.0
	for _, f := range []struct {
		present bool
		weight  float64
	}{
		{r.Name != "", 0.1},
		{r.Brand != "", 0.1},
		{r.Type != "", 0.1},
		{r.Description != "", 0.15},
		{r.ABV > 0, 0.1},
		{r.HasPrice(), 0.15},
		{r.OriginCountry != "", 0.1},
		{r.Region != "", 0.1},
		{len(r.FlavorProfile) > 0, 0.1},
	} {
		if f.present {
			completeness += f.weight
		}
	}

	score := completeness * weightCompleteness
	if !r.CreatedAt.IsZero() {
		age := newest.Sub(r.CreatedAt)
		score += math.Max(0, 1-float64(age)/float64(recencyWindow)) * weightRecency
	}
	if r.ImageURL != "" {
		score += weightImage
	}
	if r.HasPrice() {
		score += weightPrice
	}
	if r.Description != "" {
		score += math.Min(1, float64(len(r.Description))/descriptionSaturates) * weightDescriptionLen
	}
	return score
}

func exactCandidate(primary, other *domain.Record) domain.MatchCandidate {
	a, b := primary, other
	if b.ID < a.ID {
		a, b = b, a
	}
	sameBrand := normalize.Brand(a.Brand) != ""
	brandSim := 0.0
	if sameBrand {
		brandSim = 1
	}
	return domain.MatchCandidate{
		ID:         scorer.MatchID(a.ID, b.ID),
		A:          *a,
		B:          *b,
		Similarity: 1,
		Confidence: domain.ConfidenceHigh,
		MatchType:  domain.MatchTypeExact,
		Breakdown: domain.ScoreBreakdown{
			NameSimilarity:  1,
			FuzzySimilarity: 1,
			BrandSimilarity: brandSim,
			SameBrand:       sameBrand,
			KeyMatch:        "aggressive",
			AttributesA:     scorer.ExtractAttributes(a),
			AttributesB:     scorer.ExtractAttributes(b),
		},
		RecommendedAction: domain.ActionMerge,
		Pass:              "exact",
	}
}
