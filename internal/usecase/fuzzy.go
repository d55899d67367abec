package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spiritlens/backend/internal/blocking"
	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/scorer"
	"github.com/spiritlens/backend/internal/tfidf"
)

// compareFunc scores one profiled pair; swapped out in tests
type compareFunc func(a, b *scorer.Profile, ix *tfidf.Index) *domain.MatchCandidate

// fuzzyPass blocks the records, then scores every distinct candidate pair
// on a worker pool. The TF-IDF index is built once over the whole batch.
// A pair that panics is reported in report.PairErrors and the batch goes on.
func (s *DedupService) fuzzyPass(ctx context.Context, records []domain.Record, report *Report) ([]domain.MatchCandidate, error) {
	res, err := s.blocker.CreateBlocks(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("create blocks: %w", err)
	}
	report.Blocking = res.Stats
	s.metrics.BlockingReduction(res.Stats.ReductionPercent)

	pairs := blocking.CandidatePairs(res.Blocks)
	report.Summary.ComparisonsPerformed = len(pairs)
	if len(pairs) == 0 {
		return nil, nil
	}

	ix := tfidf.Build(records, tfidf.Options{})
	profiles := make([]*scorer.Profile, len(records))
	for i := range records {
		profiles[i] = scorer.NewProfile(&records[i])
	}

	compare := s.compare
	if compare == nil {
		compare = s.scorer.CompareProfiles
	}

	// Each slot is written by exactly one worker
	results := make([]*domain.MatchCandidate, len(pairs))
	failures := make([]*domain.PairError, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range pairs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < s.workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i], failures[i] = comparePair(compare, profiles, pairs[i], ix)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.metrics.ComparisonsPerformed(len(pairs))

	var candidates []domain.MatchCandidate
	for i := range pairs {
		if pe := failures[i]; pe != nil {
			report.PairErrors = append(report.PairErrors, *pe)
			s.metrics.PairFailed()
			s.logger.Warn("pair comparison failed",
				zap.String("a", pe.IDA),
				zap.String("b", pe.IDB),
				zap.String("error", pe.Error),
			)
			continue
		}
		if c := results[i]; c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates, nil
}

func comparePair(compare compareFunc, profiles []*scorer.Profile, p blocking.Pair, ix *tfidf.Index) (c *domain.MatchCandidate, pe *domain.PairError) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			pe = &domain.PairError{
				IDA:   profiles[p.I].Record.ID,
				IDB:   profiles[p.J].Record.ID,
				Error: fmt.Sprintf("%v: %v", domain.ErrComparisonFailed, r),
			}
		}
	}()
	c = compare(profiles[p.I], profiles[p.J], ix)
	if c != nil {
		c.BlockKey = p.BlockKey
	}
	return c, nil
}

// sortCandidates orders by score, highest first, then by record ids
func sortCandidates(candidates []domain.MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.A.ID != b.A.ID {
			return a.A.ID < b.A.ID
		}
		return a.B.ID < b.B.ID
	})
}

// downgradeByPrice turns merges into reviews when both records sit in a
// price group whose spread says they are probably different products
func downgradeByPrice(candidates []domain.MatchCandidate, groups []domain.PriceVariationGroup) int {
	suspect := make(map[string]int)
	for gi := range groups {
		if groups[gi].SuggestedAction != domain.PriceLikelyDifferentProducts {
			continue
		}
		for _, m := range groups[gi].Members {
			suspect[m.ID] = gi
		}
	}
	if len(suspect) == 0 {
		return 0
	}

	n := 0
	for i := range candidates {
		c := &candidates[i]
		if c.RecommendedAction != domain.ActionMerge {
			continue
		}
		ga, okA := suspect[c.A.ID]
		gb, okB := suspect[c.B.ID]
		if okA && okB && ga == gb {
			c.RecommendedAction = domain.ActionFlagForReview
			n++
		}
	}
	return n
}
