package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/pricing"
	"github.com/spiritlens/backend/internal/scorer"
)

// planMerges turns merge candidates into store operations. Candidates are
// taken best first; each side is resolved to the record that already
// absorbed it, so chains like a~b, b~c collapse into one survivor.
func (s *DedupService) planMerges(candidates []domain.MatchCandidate, records []domain.Record, groups []domain.PriceVariationGroup) []domain.MergePlan {
	current := make(map[string]domain.Record, len(records))
	for _, r := range records {
		current[r.ID] = r
	}
	priceGroup := make(map[string]*domain.PriceVariationGroup)
	for gi := range groups {
		for _, m := range groups[gi].Members {
			priceGroup[m.ID] = &groups[gi]
		}
	}

	plans := []domain.MergePlan{}
	uf := newUnionFind()
	for _, c := range candidates {
		if c.RecommendedAction != domain.ActionMerge {
			continue
		}
		ra, rb := uf.find(c.A.ID), uf.find(c.B.ID)
		if ra == rb {
			continue
		}
		recA, okA := current[ra]
		recB, okB := current[rb]
		if !okA || !okB {
			continue
		}
		if scorer.ExtractAttributes(&recA).Liqueur != scorer.ExtractAttributes(&recB).Liqueur {
			s.logger.Debug("merge skipped: liqueur mismatch", zap.String("a", ra), zap.String("b", rb))
			continue
		}

		survivor, loser := chooseSurvivor(recA, recB)
		merged := mergeFields(survivor, loser)
		if g := priceGroup[survivor.ID]; g != nil && priceGroup[loser.ID] == g {
			if price, ok := pricing.CanonicalPrice(g, survivor.Price); ok {
				merged.Price = price
			}
		}

		plans = append(plans, domain.MergePlan{
			SurvivorID:   survivor.ID,
			LoserID:      loser.ID,
			FieldUpdates: fieldUpdates(survivor, merged),
			Score:        c.Similarity,
			MatchID:      c.ID,
		})
		uf.attach(loser.ID, survivor.ID)
		current[survivor.ID] = merged
		delete(current, loser.ID)
	}
	return plans
}

// chooseSurvivor keeps the more complete record, then the newer, then the
// one with the smaller id
func chooseSurvivor(a, b domain.Record) (survivor, loser domain.Record) {
	ca, cb := a.Completeness(), b.Completeness()
	switch {
	case ca != cb:
		if ca > cb {
			return a, b
		}
		return b, a
	case !a.CreatedAt.Equal(b.CreatedAt):
		if a.CreatedAt.After(b.CreatedAt) {
			return a, b
		}
		return b, a
	case a.ID <= b.ID:
		return a, b
	}
	return b, a
}

// mergeFields fills the survivor's empty fields from the loser, keeps the
// longer description and unions flavor profiles. Neither input is modified.
func mergeFields(survivor, loser domain.Record) domain.Record {
	merged := survivor
	merged.FlavorProfile = append([]string(nil), survivor.FlavorProfile...)

	if len(loser.Description) > len(merged.Description) {
		merged.Description = loser.Description
	}
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&merged.Brand, loser.Brand)
	fill(&merged.Type, loser.Type)
	fill(&merged.Category, loser.Category)
	fill(&merged.OriginCountry, loser.OriginCountry)
	fill(&merged.Region, loser.Region)
	fill(&merged.ImageURL, loser.ImageURL)
	fill(&merged.Volume, loser.Volume)
	fill(&merged.SourceURL, loser.SourceURL)
	if merged.ABV <= 0 && loser.ABV > 0 {
		merged.ABV = loser.ABV
	}
	if !merged.HasPrice() && loser.HasPrice() {
		merged.Price = loser.Price
	}
	if merged.Age <= 0 && loser.Age > 0 {
		merged.Age = loser.Age
	}

	have := tokenSet(merged.FlavorProfile)
	for _, f := range loser.FlavorProfile {
		if !have[f] {
			have[f] = true
			merged.FlavorProfile = append(merged.FlavorProfile, f)
		}
	}
	return merged
}

// fieldUpdates lists the changed columns between a survivor and its merged
// field set, keyed by storage column name
func fieldUpdates(before, after domain.Record) map[string]interface{} {
	updates := make(map[string]interface{})
	str := func(column, was, now string) {
		if was != now {
			updates[column] = now
		}
	}
	str("brand", before.Brand, after.Brand)
	str("type", before.Type, after.Type)
	str("category", before.Category, after.Category)
	str("description", before.Description, after.Description)
	str("image_url", before.ImageURL, after.ImageURL)
	str("source_url", before.SourceURL, after.SourceURL)
	str("origin_country", before.OriginCountry, after.OriginCountry)
	str("region", before.Region, after.Region)
	str("volume", before.Volume, after.Volume)
	if before.ABV != after.ABV {
		updates["abv"] = after.ABV
	}
	if before.Price != after.Price {
		updates["price"] = after.Price
	}
	if before.Age != after.Age {
		updates["age"] = after.Age
	}
	if len(before.FlavorProfile) != len(after.FlavorProfile) {
		updates["flavor_profile"] = after.FlavorProfile
	}
	return updates
}

// reviewItems builds queue entries for every flagged match. Each side is
// resolved to the record that absorbs it under the merge plan, so the queue
// only names records that stay active. Pairs that collapse into one record
// are dropped and a pair is queued once.
func reviewItems(matches []DetailedMatch, plans []domain.MergePlan, now time.Time) []domain.ReviewItem {
	absorbed := make(map[string]string, len(plans))
	for _, p := range plans {
		absorbed[p.LoserID] = p.SurvivorID
	}
	resolve := func(id string) string {
		for {
			into, ok := absorbed[id]
			if !ok {
				return id
			}
			id = into
		}
	}

	var items []domain.ReviewItem
	seen := make(map[string]bool)
	for _, m := range matches {
		if m.RecommendedAction != domain.ActionFlagForReview {
			continue
		}
		a, b := resolve(m.A.ID), resolve(m.B.ID)
		if a == b || seen[domain.PairKey(a, b)] {
			continue
		}
		seen[domain.PairKey(a, b)] = true
		items = append(items, domain.ReviewItem{
			IDA:        a,
			IDB:        b,
			Score:      m.Similarity,
			Confidence: m.Confidence,
			Details:    m.ConfidenceExplanation,
			CreatedAt:  now.UTC(),
		})
	}
	return items
}

// Apply writes merge plans and review items one at a time. A plan whose
// records have gone away is recorded as a conflict and skipped; a pair that
// is already queued counts as queued. Any other store error stops the run
// and the partial result is returned with it.
func (s *DedupService) Apply(ctx context.Context, plans []domain.MergePlan, reviews []domain.ReviewItem) (*ApplyResult, error) {
	if s.store == nil || s.queue == nil {
		return nil, fmt.Errorf("%w: apply needs a record store and review queue", domain.ErrConfiguration)
	}

	result := &ApplyResult{Outcomes: make([]domain.MergeOutcome, 0, len(plans))}
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := s.store.ApplyMerge(ctx, plan)
		outcome := domain.MergeOutcome{Plan: plan, Applied: err == nil}
		switch {
		case err == nil:
			result.Applied++
		case errors.Is(err, domain.ErrMergeConflict):
			result.Conflicts++
			outcome.Error = err.Error()
			s.logger.Warn("merge conflict, skipping",
				zap.String("survivor", plan.SurvivorID),
				zap.String("loser", plan.LoserID),
				zap.Error(err),
			)
		default:
			return result, fmt.Errorf("apply merge %s <- %s: %w", plan.SurvivorID, plan.LoserID, err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	for _, item := range reviews {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := s.queue.Enqueue(ctx, item)
		switch {
		case err == nil:
			result.Queued++
		case errors.Is(err, domain.ErrReviewQueueDuplicate):
			result.AlreadyQueued++
			s.logger.Debug("pair already queued", zap.String("a", item.IDA), zap.String("b", item.IDB))
		default:
			return result, fmt.Errorf("enqueue review %s/%s: %w", item.IDA, item.IDB, err)
		}
	}

	s.logger.Info("merge plan applied",
		zap.Int("applied", result.Applied),
		zap.Int("conflicts", result.Conflicts),
		zap.Int("queued", result.Queued),
		zap.Int("already_queued", result.AlreadyQueued),
	)
	return result, nil
}
