package usecase

import (
	"time"

	"github.com/spiritlens/backend/internal/blocking"
	"github.com/spiritlens/backend/internal/domain"
)

// Mode selects whether a run only reports or also writes
type Mode string

const (
	ModeDryRun Mode = "dry_run"
	ModeLive   Mode = "live"
)

// ClusterAction is the suggested handling of a whole cluster
type ClusterAction string

const (
	ClusterMergeAll            ClusterAction = "merge_all"
	ClusterMergeHighConfidence ClusterAction = "merge_high_confidence"
	ClusterFlagForReview       ClusterAction = "flag_for_review"
	ClusterNoAction            ClusterAction = "no_action"
)

// Relationship buckets a member's similarity to the rest of its cluster
type Relationship string

const (
	RelationshipExact  Relationship = "exact"
	RelationshipHigh   Relationship = "high_similarity"
	RelationshipMedium Relationship = "medium_similarity"
	RelationshipLow    Relationship = "low_similarity"
)

// Report is the full outcome of one analysis run
type Report struct {
	RunID        string                       `json:"run_id" yaml:"run_id"`
	Mode         Mode                         `json:"mode" yaml:"mode"`
	GeneratedAt  time.Time                    `json:"generated_at" yaml:"generated_at"`
	Summary      Summary                      `json:"summary" yaml:"summary"`
	Matches      []DetailedMatch              `json:"matches" yaml:"matches"`
	Clusters     []Cluster                    `json:"clusters" yaml:"clusters"`
	Blocking     blocking.Stats               `json:"blocking_stats" yaml:"blocking_stats"`
	PriceGroups  []domain.PriceVariationGroup `json:"price_groups" yaml:"price_groups"`
	PriceSummary domain.PriceSummary          `json:"price_summary" yaml:"price_summary"`
	Impact       Impact                       `json:"impact_assessment" yaml:"impact_assessment"`
	MergePlan    []domain.MergePlan           `json:"merge_plan" yaml:"merge_plan"`
	Invalid      []domain.InvalidRecord       `json:"invalid_records" yaml:"invalid_records"`
	PairErrors   []domain.PairError           `json:"pair_errors" yaml:"pair_errors"`
	Timings      Timings                      `json:"timings" yaml:"timings"`
	Apply        *ApplyResult                 `json:"apply,omitempty" yaml:"apply,omitempty"`
}

// Summary holds the headline counts of a run
type Summary struct {
	RecordsAnalyzed        int     `json:"records_analyzed" yaml:"records_analyzed"`
	InvalidRecords         int     `json:"invalid_records" yaml:"invalid_records"`
	DuplicatesFound        int     `json:"duplicates_found" yaml:"duplicates_found"`
	ExactMatches           int     `json:"exact_matches" yaml:"exact_matches"`
	FuzzyMatches           int     `json:"fuzzy_matches" yaml:"fuzzy_matches"`
	PotentialMerges        int     `json:"potential_merges" yaml:"potential_merges"`
	FlaggedForReview       int     `json:"flagged_for_review" yaml:"flagged_for_review"`
	Ignored                int     `json:"ignored" yaml:"ignored"`
	ComparisonsPerformed   int     `json:"comparisons_performed" yaml:"comparisons_performed"`
	DataQualityImprovement float64 `json:"estimated_data_quality_improvement" yaml:"estimated_data_quality_improvement"`
}

// Timings records how long each pass took
type Timings struct {
	Validate time.Duration `json:"validate" yaml:"validate"`
	Exact    time.Duration `json:"exact" yaml:"exact"`
	Fuzzy    time.Duration `json:"fuzzy" yaml:"fuzzy"`
	Price    time.Duration `json:"price" yaml:"price"`
	Report   time.Duration `json:"report" yaml:"report"`
	Apply    time.Duration `json:"apply,omitempty" yaml:"apply,omitempty"`
	Total    time.Duration `json:"total" yaml:"total"`
}

// DetailedMatch is a candidate with the audit detail a reviewer needs
type DetailedMatch struct {
	domain.MatchCandidate `yaml:",inline"`

	Analysis              MatchAnalysis `json:"analysis" yaml:"analysis"`
	MergePreview          MergePreview  `json:"merge_preview" yaml:"merge_preview"`
	ConfidenceExplanation string        `json:"confidence_explanation" yaml:"confidence_explanation"`
}

// MatchAnalysis breaks a match down by signal
type MatchAnalysis struct {
	Name       NameAnalysis      `json:"name" yaml:"name"`
	Brand      BrandAnalysis     `json:"brand" yaml:"brand"`
	Attributes AttributeAnalysis `json:"attributes" yaml:"attributes"`
	Price      PriceAnalysis     `json:"price" yaml:"price"`
}

// NameAnalysis compares the two names token by token
type NameAnalysis struct {
	Original1          string   `json:"original_1" yaml:"original_1"`
	Original2          string   `json:"original_2" yaml:"original_2"`
	Normalized1        string   `json:"normalized_1" yaml:"normalized_1"`
	Normalized2        string   `json:"normalized_2" yaml:"normalized_2"`
	Similarity         float64  `json:"similarity" yaml:"similarity"`
	MatchingTokens     []string `json:"matching_tokens" yaml:"matching_tokens"`
	Differences        []string `json:"differences" yaml:"differences"`
	VariantDifferences []string `json:"variant_differences,omitempty" yaml:"variant_differences,omitempty"`
}

// BrandAnalysis compares the two brands
type BrandAnalysis struct {
	Brand1      string  `json:"brand_1" yaml:"brand_1"`
	Brand2      string  `json:"brand_2" yaml:"brand_2"`
	Normalized1 string  `json:"normalized_1" yaml:"normalized_1"`
	Normalized2 string  `json:"normalized_2" yaml:"normalized_2"`
	SameBrand   bool    `json:"same_brand" yaml:"same_brand"`
	Similarity  float64 `json:"similarity" yaml:"similarity"`
}

// AttributeCheck is the comparison of one attribute
type AttributeCheck struct {
	Value1  string  `json:"value_1,omitempty" yaml:"value_1,omitempty"`
	Value2  string  `json:"value_2,omitempty" yaml:"value_2,omitempty"`
	Match   bool    `json:"match" yaml:"match"`
	Penalty float64 `json:"penalty" yaml:"penalty"`
}

// AttributeAnalysis compares the extracted attributes
type AttributeAnalysis struct {
	Age   AttributeCheck `json:"age" yaml:"age"`
	Proof AttributeCheck `json:"proof" yaml:"proof"`
	Type  AttributeCheck `json:"type" yaml:"type"`
	Grain AttributeCheck `json:"grain" yaml:"grain"`
}

// PriceAnalysis compares the two prices
type PriceAnalysis struct {
	Price1           float64 `json:"price_1,omitempty" yaml:"price_1,omitempty"`
	Price2           float64 `json:"price_2,omitempty" yaml:"price_2,omitempty"`
	Difference       float64 `json:"difference,omitempty" yaml:"difference,omitempty"`
	VariationPercent float64 `json:"variation_percent,omitempty" yaml:"variation_percent,omitempty"`
	Compatible       bool    `json:"compatible" yaml:"compatible"`
}

// MergePreview shows what merging the pair would produce
type MergePreview struct {
	SurvivorID      string        `json:"survivor_id" yaml:"survivor_id"`
	LoserID         string        `json:"loser_id" yaml:"loser_id"`
	Merged          domain.Record `json:"merged" yaml:"merged"`
	Improvements    []string      `json:"improvements" yaml:"improvements"`
	PotentialLosses []string      `json:"potential_losses" yaml:"potential_losses"`
}

// Cluster is a connected component of matched records
type Cluster struct {
	ID                string          `json:"cluster_id" yaml:"cluster_id"`
	CenterID          string          `json:"center_id" yaml:"center_id"`
	Members           []ClusterMember `json:"members" yaml:"members"`
	Similarity        float64         `json:"cluster_similarity" yaml:"cluster_similarity"`
	RecommendedAction ClusterAction   `json:"recommended_action" yaml:"recommended_action"`
}

// ClusterMember is one record of a cluster
type ClusterMember struct {
	Record       domain.Record `json:"record" yaml:"record"`
	Similarity   float64       `json:"similarity" yaml:"similarity"`
	Relationship Relationship  `json:"relationship" yaml:"relationship"`
}

// Impact estimates what applying the run would change
type Impact struct {
	RecordsToRemove             int      `json:"records_to_remove" yaml:"records_to_remove"`
	FieldsToEnhance             int      `json:"fields_to_enhance" yaml:"fields_to_enhance"`
	DuplicationReductionPercent float64  `json:"estimated_duplication_reduction" yaml:"estimated_duplication_reduction"`
	PotentialDataLoss           []string `json:"potential_data_loss" yaml:"potential_data_loss"`
	DataQualityImprovements     []string `json:"data_quality_improvements" yaml:"data_quality_improvements"`
}

// ApplyResult records what a live run wrote
type ApplyResult struct {
	Outcomes      []domain.MergeOutcome `json:"outcomes" yaml:"outcomes"`
	Applied       int                   `json:"applied" yaml:"applied"`
	Conflicts     int                   `json:"conflicts" yaml:"conflicts"`
	Queued        int                   `json:"queued" yaml:"queued"`
	AlreadyQueued int                   `json:"already_queued" yaml:"already_queued"`
}
