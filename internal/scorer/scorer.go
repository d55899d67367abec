// Package scorer compares two records and decides whether they describe the
// same product, combining name, brand and TF-IDF similarity with an
// attribute-mismatch penalty.
package scorer

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
	"github.com/spiritlens/backend/internal/similarity"
	"github.com/spiritlens/backend/internal/tfidf"
)

// Classification cut-offs
const (
	keyMatchFloor = 0.95 // name similarity floor when normalized keys agree

	exactNameMin     = 0.95
	exactBrandMin    = 0.95
	exactPenaltyMax  = 0.1
	highScoreMin     = 0.95
	highPenaltyMax   = 0.1
	mediumScoreMin   = 0.85
	mediumPenaltyMax = 0.2

	earlyExitPenalty = 0.7 // penalties above this end the comparison without a key match
)

// matchNamespace scopes deterministic match identifiers
var matchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://spiritlens.dev/match"))

// PenaltyWeights are the configurable attribute penalty weights
type PenaltyWeights struct {
	Age       float64 `mapstructure:"age" json:"age"`
	Proof     float64 `mapstructure:"proof" json:"proof"`
	GrainType float64 `mapstructure:"grain_type" json:"grain_type"`
}

// Config holds scoring thresholds and weights
type Config struct {
	NameThreshold           float64
	SameBrandThreshold      float64
	DifferentBrandThreshold float64
	CombinedThreshold       float64
	AutoMergeThreshold      float64
	SameBrandWeight         float64
	DifferentBrandWeight    float64
	FuzzyWeight             float64
	TFIDFWeight             float64
	PenaltyWeights          PenaltyWeights
	Similarity              similarity.Config
}

// DefaultConfig returns the tuned baseline
func DefaultConfig() Config {
	return Config{
		NameThreshold:           0.7,
		SameBrandThreshold:      0.7,
		DifferentBrandThreshold: 0.85,
		CombinedThreshold:       0.6,
		AutoMergeThreshold:      0.9,
		SameBrandWeight:         0.15,
		DifferentBrandWeight:    0.4,
		FuzzyWeight:             0.6,
		TFIDFWeight:             0.4,
		PenaltyWeights:          PenaltyWeights{Age: 0.4, Proof: 0.15, GrainType: 0.25},
		Similarity:              similarity.DefaultConfig(),
	}
}

// Validate rejects out-of-range thresholds and weights
func (c Config) Validate() error {
	unit := map[string]float64{
		"name_threshold":            c.NameThreshold,
		"same_brand_threshold":      c.SameBrandThreshold,
		"different_brand_threshold": c.DifferentBrandThreshold,
		"combined_threshold":        c.CombinedThreshold,
		"auto_merge_threshold":      c.AutoMergeThreshold,
		"same_brand_weight":         c.SameBrandWeight,
		"different_brand_weight":    c.DifferentBrandWeight,
		"fuzzy_weight":              c.FuzzyWeight,
		"tfidf_weight":              c.TFIDFWeight,
	}
	for name, v := range unit {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s must be within [0, 1] (got %v)", domain.ErrConfiguration, name, v)
		}
	}
	if c.FuzzyWeight+c.TFIDFWeight == 0 {
		return fmt.Errorf("%w: fuzzy and tfidf weights must not both be zero", domain.ErrConfiguration)
	}
	pw := c.PenaltyWeights
	if pw.Age < 0 || pw.Proof < 0 || pw.GrainType < 0 {
		return fmt.Errorf("%w: attribute penalty weights must not be negative", domain.ErrConfiguration)
	}
	return c.Similarity.Validate()
}

// Profile caches the per-record values every comparison needs
type Profile struct {
	Record     *domain.Record
	Keys       normalize.Keys
	Brand      string
	Attributes domain.Attributes
}

// NewProfile derives the comparison profile of a record
func NewProfile(r *domain.Record) *Profile {
	return &Profile{
		Record:     r,
		Keys:       normalize.KeysFor(r.Name),
		Brand:      normalize.Brand(r.Brand),
		Attributes: ExtractAttributes(r),
	}
}

// Scorer compares record pairs
type Scorer struct {
	config Config
	logger *zap.Logger
}

// New validates cfg and returns a scorer
func New(cfg Config, logger *zap.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{config: cfg, logger: logger}, nil
}

// Config returns the scorer configuration
func (s *Scorer) Config() Config { return s.config }

// Compare scores a pair on name, brand and attributes. It returns nil when
// the pair does not reach the applicable threshold.
func (s *Scorer) Compare(a, b *domain.Record) *domain.MatchCandidate {
	return s.CompareProfiles(NewProfile(a), NewProfile(b), nil)
}

// CompareFuzzyWithTFIDF blends name similarity with the TF-IDF cosine of the
// two records before brand weighting. The index must have been built over
// the current batch.
func (s *Scorer) CompareFuzzyWithTFIDF(a, b *domain.Record, ix *tfidf.Index) *domain.MatchCandidate {
	return s.CompareProfiles(NewProfile(a), NewProfile(b), ix)
}

// CompareProfiles is the shared comparison. A nil index disables the TF-IDF
// blend. Arguments are put in canonical order first, so the result does not
// depend on which record is passed as a.
func (s *Scorer) CompareProfiles(pa, pb *Profile, ix *tfidf.Index) *domain.MatchCandidate {
	if less(pb.Record, pa.Record) {
		pa, pb = pb, pa
	}
	a, b := pa.Record, pb.Record
	cfg := s.config

	keyMatch := pa.Keys.MatchLevel(pb.Keys)
	penalties := Penalty(pa.Attributes, pb.Attributes, cfg.PenaltyWeights)
	if penalties.Total > earlyExitPenalty && keyMatch == "" {
		return nil
	}

	fuzzy := similarity.Similarity(a.Name, b.Name, cfg.Similarity).Value
	name := fuzzy
	var tfidfSim float64
	tfidfApplied := false
	if ix != nil {
		if sim, ok := ix.Compare(a, b); ok {
			tfidfSim = sim
			tfidfApplied = true
			name = (fuzzy*cfg.FuzzyWeight + sim*cfg.TFIDFWeight) / (cfg.FuzzyWeight + cfg.TFIDFWeight)
		}
	}
	if keyMatch != "" && name < keyMatchFloor {
		name = keyMatchFloor
	}

	sameBrand := pa.Brand != "" && pa.Brand == pb.Brand
	brandWeight := cfg.DifferentBrandWeight
	brandSim := 0.0
	switch {
	case sameBrand:
		brandSim = 1
		brandWeight = cfg.SameBrandWeight
	case pa.Brand != "" && pb.Brand != "":
		brandSim = similarity.Similarity(a.Brand, b.Brand, cfg.Similarity).Value
	}

	bonus := Bonus(pa.Attributes, pb.Attributes)
	base := name*(1-brandWeight) + brandSim*brandWeight
	score := clamp(base*(1-penalties.Total) + bonus)

	threshold := cfg.DifferentBrandThreshold
	if sameBrand {
		threshold = cfg.SameBrandThreshold
	}
	if score < threshold {
		return nil
	}

	candidate := &domain.MatchCandidate{
		ID:         MatchID(a.ID, b.ID),
		A:          *a,
		B:          *b,
		Similarity: score,
		Breakdown: domain.ScoreBreakdown{
			NameSimilarity:   name,
			FuzzySimilarity:  fuzzy,
			TFIDFSimilarity:  tfidfSim,
			TFIDFApplied:     tfidfApplied,
			BrandSimilarity:  brandSim,
			BrandWeight:      brandWeight,
			SameBrand:        sameBrand,
			KeyMatch:         keyMatch,
			AttributePenalty: penalties.Total,
			Penalties:        penalties,
			Bonus:            bonus,
			Threshold:        threshold,
			AttributesA:      pa.Attributes,
			AttributesB:      pb.Attributes,
		},
		Pass: "fuzzy",
	}
	candidate.MatchType = s.matchType(name, brandSim, penalties.Total)
	candidate.Confidence = classifyConfidence(score, penalties.Total)
	candidate.RecommendedAction = s.action(score, candidate.Confidence, pa.Attributes, pb.Attributes)

	s.logger.Debug("candidate scored",
		zap.String("a", a.ID),
		zap.String("b", b.ID),
		zap.Float64("name", name),
		zap.Float64("brand", brandSim),
		zap.Float64("penalty", penalties.Total),
		zap.Float64("score", score),
		zap.String("action", string(candidate.RecommendedAction)),
	)
	return candidate
}

func (s *Scorer) matchType(name, brand, penalty float64) domain.MatchType {
	switch {
	case name >= exactNameMin && brand >= exactBrandMin && penalty < exactPenaltyMax:
		return domain.MatchTypeExact
	case brand == 1:
		return domain.MatchTypeFuzzyBrand
	case name >= s.config.NameThreshold:
		return domain.MatchTypeFuzzyName
	}
	return domain.MatchTypeCombined
}

func classifyConfidence(score, penalty float64) domain.Confidence {
	switch {
	case score >= highScoreMin && penalty < highPenaltyMax:
		return domain.ConfidenceHigh
	case score >= mediumScoreMin && penalty < mediumPenaltyMax:
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

// action never recommends merging a liqueur with a non-liqueur
func (s *Scorer) action(score float64, confidence domain.Confidence, a, b domain.Attributes) domain.Action {
	switch {
	case score >= s.config.AutoMergeThreshold && confidence == domain.ConfidenceHigh && a.Liqueur == b.Liqueur:
		return domain.ActionMerge
	case score >= s.config.CombinedThreshold:
		return domain.ActionFlagForReview
	}
	return domain.ActionIgnore
}

// MatchID is the deterministic identifier of a pair, independent of order
func MatchID(idA, idB string) string {
	return uuid.NewSHA1(matchNamespace, []byte(domain.PairKey(idA, idB))).String()
}

// less orders records by id, then name, then brand
func less(a, b *domain.Record) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Brand < b.Brand
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
