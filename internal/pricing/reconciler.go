// Package pricing reconciles the prices of records that describe one product.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
)

const (
	lowVariation      = 0.1 // below this the average is trusted
	pairFlagVariation = 0.3 // two prices further apart than this need a human

	proximityWeight    = 0.4
	completenessWeight = 0.1 // per populated field, six fields
)

// Config holds price reconciliation options
type Config struct {
	MaxCoefficientOfVariation float64 `mapstructure:"max_coefficient_of_variation"`
	OutlierThreshold          float64 `mapstructure:"outlier_threshold"`
	MinPricesForStats         int     `mapstructure:"min_prices_for_stats"`
}

// DefaultConfig returns the standard price options
func DefaultConfig() Config {
	return Config{
		MaxCoefficientOfVariation: 0.5,
		OutlierThreshold:          2.0,
		MinPricesForStats:         2,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MaxCoefficientOfVariation <= 0 || math.IsNaN(c.MaxCoefficientOfVariation) {
		return fmt.Errorf("%w: max coefficient of variation must be positive", domain.ErrConfiguration)
	}
	if c.OutlierThreshold < 1 {
		return fmt.Errorf("%w: outlier threshold must be at least 1 (got %v)", domain.ErrConfiguration, c.OutlierThreshold)
	}
	if c.MinPricesForStats < 1 {
		return fmt.Errorf("%w: min prices for stats must be at least 1", domain.ErrConfiguration)
	}
	return nil
}

// Reconciler computes price statistics and suggested handling per group
type Reconciler struct {
	config Config
	logger *zap.Logger
}

// NewReconciler validates cfg and returns a reconciler
func NewReconciler(cfg Config, logger *zap.Logger) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{config: cfg, logger: logger}, nil
}

// Config returns the reconciler configuration
func (r *Reconciler) Config() Config { return r.config }

// Stats summarizes the positive prices in prices. Non-positive values are
// excluded, not treated as zero. Outliers (ratio to the median beyond the
// threshold either way) are dropped only if enough prices remain. ok is
// false when no positive price exists.
func (r *Reconciler) Stats(prices []float64) (stats domain.PriceStats, ok bool) {
	positive := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			positive = append(positive, p)
		}
	}
	if len(positive) == 0 {
		return domain.PriceStats{}, false
	}

	kept := positive
	if len(positive) >= r.config.MinPricesForStats {
		if filtered := r.withoutOutliers(positive); len(filtered) >= r.config.MinPricesForStats {
			kept = filtered
		}
	}

	stats = describe(kept)
	stats.OutliersRemoved = len(positive) - len(kept)
	return stats, true
}

func (r *Reconciler) withoutOutliers(prices []float64) []float64 {
	median := medianOf(prices)
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		ratio := p / median
		if ratio <= r.config.OutlierThreshold && ratio >= 1/r.config.OutlierThreshold {
			out = append(out, p)
		}
	}
	return out
}

// SuggestAction maps price spread to a handling strategy
func (r *Reconciler) SuggestAction(s domain.PriceStats) domain.PriceAction {
	switch {
	case s.CoefficientOfVariation > r.config.MaxCoefficientOfVariation:
		return domain.PriceLikelyDifferentProducts
	case s.Count == 2 && s.CoefficientOfVariation > pairFlagVariation:
		return domain.PriceFlagForReview
	case s.CoefficientOfVariation < lowVariation:
		return domain.PriceUseAverage
	}
	return domain.PriceUseMedian
}

// Analyze reconciles one group of records judged to be the same product.
// ok is false when no member carries a positive price.
func (r *Reconciler) Analyze(key string, members []domain.Record) (*domain.PriceVariationGroup, bool) {
	prices := make([]float64, len(members))
	for i := range members {
		prices[i] = members[i].Price
	}
	stats, ok := r.Stats(prices)
	if !ok {
		r.logger.Debug("no prices for group", zap.String("key", key), zap.Int("members", len(members)))
		return nil, false
	}

	group := &domain.PriceVariationGroup{
		NormalizedKey:   key,
		Members:         members,
		Stats:           stats,
		SuggestedAction: r.SuggestAction(stats),
	}
	primary := SelectPrimary(members, stats.Median)
	group.PrimaryID = members[primary].ID
	if price, ok := CanonicalPrice(group, members[primary].Price); ok {
		group.CanonicalPrice = price
	}
	return group, true
}

// AnalyzeByGroups groups records by their price key and reconciles every
// group of two or more records. Groups come back sorted by key.
func (r *Reconciler) AnalyzeByGroups(records []domain.Record) []domain.PriceVariationGroup {
	byKey := make(map[string][]domain.Record)
	for _, rec := range records {
		key := normalize.PriceKey(rec.Brand, rec.Name)
		byKey[key] = append(byKey[key], rec)
	}

	keys := make([]string, 0, len(byKey))
	for k, members := range byKey {
		if len(members) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	groups := make([]domain.PriceVariationGroup, 0, len(keys))
	for _, k := range keys {
		if g, ok := r.Analyze(k, byKey[k]); ok {
			groups = append(groups, *g)
		}
	}
	r.logger.Debug("price groups analyzed", zap.Int("records", len(records)), zap.Int("groups", len(groups)))
	return groups
}

// Summarize aggregates groups for reporting
func (r *Reconciler) Summarize(groups []domain.PriceVariationGroup) domain.PriceSummary {
	summary := domain.PriceSummary{
		TotalGroups: len(groups),
		ActionCounts: map[domain.PriceAction]int{
			domain.PriceUseAverage:              0,
			domain.PriceUseMedian:               0,
			domain.PriceFlagForReview:           0,
			domain.PriceLikelyDifferentProducts: 0,
		},
	}
	total := 0.0
	for _, g := range groups {
		summary.ActionCounts[g.SuggestedAction]++
		summary.TotalRecordsInGroups += len(g.Members)
		total += g.Stats.CoefficientOfVariation
		if g.Stats.CoefficientOfVariation > r.config.MaxCoefficientOfVariation {
			summary.HighVariationGroups++
		}
	}
	if len(groups) > 0 {
		summary.AverageVariation = total / float64(len(groups))
	}
	return summary
}

// SelectPrimary returns the index of the member that should carry the
// group's canonical values: 40% proximity of its price to the median plus
// 60% field completeness. Ties go to the smaller id.
func SelectPrimary(members []domain.Record, median float64) int {
	best, bestScore := -1, -1.0
	for i := range members {
		score := primaryScore(&members[i], median)
		if best < 0 || score > bestScore || (score == bestScore && members[i].ID < members[best].ID) {
			best, bestScore = i, score
		}
	}
	return best
}

func primaryScore(r *domain.Record, median float64) float64 {
	score := 0.0
	if r.Price > 0 && median > 0 {
		ratio := math.Abs(r.Price-median) / median
		score += (1 - math.Min(ratio, 1)) * proximityWeight
	}
	for _, present := range []bool{
		r.Brand != "",
		r.Description != "",
		r.ImageURL != "",
		r.ABV > 0,
		r.Volume != "",
		r.OriginCountry != "",
	} {
		if present {
			score += completenessWeight
		}
	}
	return score
}

// CanonicalPrice is the price a merged record should carry under the
// group's suggested action. Averages are rounded to cents; a flagged group
// keeps the survivor's own price. ok is false for groups that should not
// be merged on price.
func CanonicalPrice(g *domain.PriceVariationGroup, survivorPrice float64) (float64, bool) {
	switch g.SuggestedAction {
	case domain.PriceUseAverage:
		return roundCents(g.Stats.Average), true
	case domain.PriceUseMedian:
		return g.Stats.Median, true
	case domain.PriceFlagForReview:
		if survivorPrice > 0 {
			return survivorPrice, true
		}
	}
	return 0, false
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// describe computes min, max, mean, median and population deviation. The
// mean is summed in decimal so identical prices have exactly zero spread.
func describe(prices []float64) domain.PriceStats {
	s := domain.PriceStats{Count: len(prices), Min: prices[0], Max: prices[0]}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
	}
	s.Average = sum.Div(decimal.NewFromInt(int64(len(prices)))).InexactFloat64()
	s.Median = medianOf(prices)

	variance := 0.0
	for _, p := range prices {
		variance += (p - s.Average) * (p - s.Average)
	}
	s.StdDev = math.Sqrt(variance / float64(len(prices)))
	if s.Average > 0 {
		s.CoefficientOfVariation = s.StdDev / s.Average
	}
	return s
}

func medianOf(prices []float64) float64 {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
