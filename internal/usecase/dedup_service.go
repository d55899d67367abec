package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/blocking"
	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
	"github.com/spiritlens/backend/internal/pricing"
	"github.com/spiritlens/backend/internal/scorer"
	"github.com/spiritlens/backend/internal/similarity"
)

// DedupServiceConfig holds configuration for the dedup service
type DedupServiceConfig struct {
	Blocking blocking.Config
	Scoring  scorer.Config
	Price    pricing.Config
	Workers  int
	CacheTTL time.Duration
}

// DefaultDedupServiceConfig returns the standard engine configuration
func DefaultDedupServiceConfig() DedupServiceConfig {
	return DedupServiceConfig{
		Blocking: blocking.DefaultConfig(),
		Scoring:  scorer.DefaultConfig(),
		Price:    pricing.DefaultConfig(),
	}
}

// Recorder receives run metrics. The zero-cost default discards them.
type Recorder interface {
	RunCompleted(mode string, took time.Duration, records int)
	ComparisonsPerformed(n int)
	BlockingReduction(percent float64)
	CandidatesFound(action string, n int)
	PairFailed()
}

type nopRecorder struct{}

func (nopRecorder) RunCompleted(string, time.Duration, int) {}
func (nopRecorder) ComparisonsPerformed(int)                {}
func (nopRecorder) BlockingReduction(float64)               {}
func (nopRecorder) CandidatesFound(string, int)             {}
func (nopRecorder) PairFailed()                             {}

// Option customizes a DedupService
type Option func(*DedupService)

// WithRecorder wires run metrics
func WithRecorder(r Recorder) Option {
	return func(s *DedupService) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock replaces the wall clock, for deterministic reports in tests
func WithClock(now func() time.Time) Option {
	return func(s *DedupService) { s.now = now }
}

// DedupService runs the deduplication pipeline:
// fetch -> exact pass -> blocked fuzzy pass -> price pass -> report or apply
type DedupService struct {
	blocker *blocking.Engine
	scorer  *scorer.Scorer
	prices  *pricing.Reconciler
	compare compareFunc

	store domain.RecordStore
	queue domain.ReviewQueue
	cache domain.CacheRepository

	workers  int
	cacheTTL time.Duration
	metrics  Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewDedupService creates the service. The store, queue and cache may be
// nil; live runs then fail with ErrConfiguration and reports are not cached.
func NewDedupService(
	config DedupServiceConfig,
	store domain.RecordStore,
	queue domain.ReviewQueue,
	cache domain.CacheRepository,
	logger *zap.Logger,
	opts ...Option,
) (*DedupService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	blocker, err := blocking.NewEngine(config.Blocking, logger.Named("blocking"))
	if err != nil {
		return nil, err
	}
	sc, err := scorer.New(config.Scoring, logger.Named("scorer"))
	if err != nil {
		return nil, err
	}
	prices, err := pricing.NewReconciler(config.Price, logger.Named("pricing"))
	if err != nil {
		return nil, err
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour // Default 1 day
	}

	s := &DedupService{
		blocker:  blocker,
		scorer:   sc,
		prices:   prices,
		store:    store,
		queue:    queue,
		cache:    cache,
		workers:  workers,
		cacheTTL: cacheTTL,
		metrics:  nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Options controls one run
type Options struct {
	Mode Mode
}

// AnalyzeSource fetches the batch from src and analyzes it
func (s *DedupService) AnalyzeSource(ctx context.Context, src domain.RecordSource, opts Options) (*Report, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no record source", domain.ErrConfiguration)
	}
	records, err := src.FetchRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return s.Analyze(ctx, records, opts)
}

// Analyze runs every pass over records. A dry run only builds the report;
// a live run also applies the merge plan and queues flagged pairs.
func (s *DedupService) Analyze(ctx context.Context, records []domain.Record, opts Options) (*Report, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeDryRun
	}
	if mode != ModeDryRun && mode != ModeLive {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrConfiguration, mode)
	}
	if mode == ModeLive && (s.store == nil || s.queue == nil) {
		return nil, fmt.Errorf("%w: live mode needs a record store and review queue", domain.ErrConfiguration)
	}

	start := time.Now()
	report := &Report{
		RunID:       uuid.NewString(),
		Mode:        mode,
		GeneratedAt: s.now().UTC(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID), zap.String("mode", string(mode)))
	log.Info("dedup run started", zap.Int("records", len(records)))

	// Validate
	passStart := time.Now()
	valid, invalid := validateRecords(records)
	report.Invalid = invalid
	report.Timings.Validate = time.Since(passStart)
	for _, inv := range invalid {
		log.Warn("invalid record skipped", zap.Int("index", inv.Index), zap.String("id", inv.ID), zap.String("reason", inv.Reason))
	}

	// Exact pass
	passStart = time.Now()
	exact, consumed := s.exactPass(valid)
	report.Timings.Exact = time.Since(passStart)
	log.Info("exact pass complete", zap.Int("matches", len(exact)), zap.Int("consumed", len(consumed)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Blocked fuzzy pass
	passStart = time.Now()
	remaining := make([]domain.Record, 0, len(valid)-len(consumed))
	for _, r := range valid {
		if !consumed[r.ID] {
			remaining = append(remaining, r)
		}
	}
	fuzzy, err := s.fuzzyPass(ctx, remaining, report)
	if err != nil {
		return nil, err
	}
	report.Timings.Fuzzy = time.Since(passStart)
	log.Info("fuzzy pass complete",
		zap.Int("candidates", len(fuzzy)),
		zap.Int("pair_errors", len(report.PairErrors)),
		zap.Float64("reduction_pct", report.Blocking.ReductionPercent),
	)

	candidates := append(exact, fuzzy...)
	sortCandidates(candidates)

	// Price pass
	passStart = time.Now()
	report.PriceGroups = s.prices.AnalyzeByGroups(valid)
	report.PriceSummary = s.prices.Summarize(report.PriceGroups)
	downgraded := downgradeByPrice(candidates, report.PriceGroups)
	report.Timings.Price = time.Since(passStart)
	if downgraded > 0 {
		log.Info("merges downgraded by price variation", zap.Int("count", downgraded))
	}

	// Report
	passStart = time.Now()
	s.buildReport(report, valid, candidates)
	report.Timings.Report = time.Since(passStart)

	if mode == ModeLive {
		passStart = time.Now()
		result, err := s.Apply(ctx, report.MergePlan, reviewItems(report.Matches, report.MergePlan, s.now()))
		report.Apply = result
		report.Timings.Apply = time.Since(passStart)
		if err != nil {
			return report, err
		}
	}

	report.Timings.Total = time.Since(start)
	s.metrics.RunCompleted(string(mode), report.Timings.Total, len(records))
	s.cacheReport(ctx, report)

	log.Info("dedup run complete",
		zap.Int("matches", len(report.Matches)),
		zap.Int("merges", report.Summary.PotentialMerges),
		zap.Int("flagged", report.Summary.FlaggedForReview),
		zap.Duration("took", report.Timings.Total),
	)
	return report, nil
}

// Compare scores a single pair outside a batch. A nil candidate means the
// pair is below every threshold.
func (s *DedupService) Compare(a, b domain.Record) (*domain.MatchCandidate, error) {
	if err := domain.ValidateRecord(&a); err != nil {
		return nil, err
	}
	if err := domain.ValidateRecord(&b); err != nil {
		return nil, err
	}
	return s.scorer.Compare(&a, &b), nil
}

// Similarity runs the fuzzy similarity library with the configured weights
func (s *DedupService) Similarity(s1, s2 string) similarity.Result {
	return similarity.Similarity(s1, s2, s.scorer.Config().Similarity)
}

// AnalyzePrices reconciles records already judged to be one product
func (s *DedupService) AnalyzePrices(records []domain.Record) (*domain.PriceVariationGroup, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", domain.ErrInvalidRequest)
	}
	key := normalize.PriceKey(records[0].Brand, records[0].Name)
	group, ok := s.prices.Analyze(key, records)
	if !ok {
		return nil, fmt.Errorf("%w: no positive prices in group", domain.ErrInvalidRequest)
	}
	return group, nil
}

// GetReport returns a cached report by run id
func (s *DedupService) GetReport(ctx context.Context, runID string) (*Report, error) {
	if s.cache == nil || runID == "" {
		return nil, domain.ErrReportNotFound
	}
	data, err := s.cache.Get(ctx, reportCacheKey(runID))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

func (s *DedupService) cacheReport(ctx context.Context, report *Report) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("encode report for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, reportCacheKey(report.RunID), data, s.cacheTTL); err != nil {
		// Caching is best effort
		s.logger.Warn("cache report", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// reportCacheKey format: "report:{run_id}"
func reportCacheKey(runID string) string {
	return "report:" + runID
}

// validateRecords splits records into valid ones and rejections. A repeated
// id is rejected after its first occurrence.
func validateRecords(records []domain.Record) ([]domain.Record, []domain.InvalidRecord) {
	valid := make([]domain.Record, 0, len(records))
	var invalid []domain.InvalidRecord
	seen := make(map[string]bool, len(records))
	for i := range records {
		r := &records[i]
		if err := domain.ValidateRecord(r); err != nil {
			invalid = append(invalid, domain.InvalidRecord{Index: i, ID: r.ID, Name: r.Name, Reason: err.Error()})
			continue
		}
		if seen[r.ID] {
			invalid = append(invalid, domain.InvalidRecord{
				Index:  i,
				ID:     r.ID,
				Name:   r.Name,
				Reason: fmt.Sprintf("%v: duplicate id", domain.ErrInvalidRecord),
			})
			continue
		}
		seen[r.ID] = true
		valid = append(valid, *r)
	}
	return valid, invalid
}
