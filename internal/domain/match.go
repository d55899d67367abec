package domain

// Confidence is the coarse bucket summarizing how strongly a score supports a match
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchType records which signal carried a match
type MatchType string

const (
	MatchTypeExact      MatchType = "exact"
	MatchTypeFuzzyName  MatchType = "fuzzy_name"
	MatchTypeFuzzyBrand MatchType = "fuzzy_brand"
	MatchTypeCombined   MatchType = "combined"
)

// Action is the recommended handling of a candidate pair
type Action string

const (
	ActionMerge         Action = "merge"
	ActionFlagForReview Action = "flag_for_review"
	ActionIgnore        Action = "ignore"
)

// Rank orders actions from weakest to strongest
func (a Action) Rank() int {
	switch a {
	case ActionMerge:
		return 2
	case ActionFlagForReview:
		return 1
	default:
		return 0
	}
}

// Attributes are the comparable domain facts extracted from a record
type Attributes struct {
	Age            int     `json:"age,omitempty"`
	Proof          float64 `json:"proof,omitempty"`
	Grain          string  `json:"grain,omitempty"`
	Cask           string  `json:"cask,omitempty"`
	Vintage        int     `json:"vintage,omitempty"`
	ReleaseYear    int     `json:"release_year,omitempty"`
	LimitedEdition bool    `json:"limited_edition,omitempty"`
	Liqueur        bool    `json:"liqueur,omitempty"`
	CaskStrength   bool    `json:"cask_strength,omitempty"`
	SingleBarrel   bool    `json:"single_barrel,omitempty"`
}

// PenaltyBreakdown itemizes the attribute penalty
type PenaltyBreakdown struct {
	Age          float64 `json:"age,omitempty"`
	Proof        float64 `json:"proof,omitempty"`
	Grain        float64 `json:"grain,omitempty"`
	Cask         float64 `json:"cask,omitempty"`
	Vintage      float64 `json:"vintage,omitempty"`
	Release      float64 `json:"release,omitempty"`
	Edition      float64 `json:"edition,omitempty"`
	Liqueur      float64 `json:"liqueur,omitempty"`
	CaskStrength float64 `json:"cask_strength,omitempty"`
	SingleBarrel float64 `json:"single_barrel,omitempty"`
	Total        float64 `json:"total"`
}

// ScoreBreakdown explains how a candidate score was assembled
type ScoreBreakdown struct {
	NameSimilarity   float64          `json:"name_similarity"`
	FuzzySimilarity  float64          `json:"fuzzy_similarity"`
	TFIDFSimilarity  float64          `json:"tfidf_similarity"`
	TFIDFApplied     bool             `json:"tfidf_applied"`
	BrandSimilarity  float64          `json:"brand_similarity"`
	BrandWeight      float64          `json:"brand_weight"`
	SameBrand        bool             `json:"same_brand"`
	KeyMatch         string           `json:"key_match,omitempty"`
	AttributePenalty float64          `json:"attribute_penalty"`
	Penalties        PenaltyBreakdown `json:"penalties"`
	Bonus            float64          `json:"bonus"`
	Threshold        float64          `json:"threshold"`
	AttributesA      Attributes       `json:"attributes_a"`
	AttributesB      Attributes       `json:"attributes_b"`
}

// MatchCandidate is a scored pair. A and B are held in canonical order so
// the same pair always serializes the same way regardless of argument order.
type MatchCandidate struct {
	ID                string         `json:"match_id"`
	A                 Record         `json:"a"`
	B                 Record         `json:"b"`
	Similarity        float64        `json:"similarity"`
	Confidence        Confidence     `json:"confidence"`
	MatchType         MatchType      `json:"match_type"`
	Breakdown         ScoreBreakdown `json:"breakdown"`
	RecommendedAction Action         `json:"recommended_action"`
	BlockKey          string         `json:"block_key,omitempty"`
	Pass              string         `json:"pass"`
}

// PairKey returns the order-independent identity of a pair
func PairKey(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return idA + "|" + idB
}

// PairError records a comparison that failed without aborting the batch
type PairError struct {
	IDA   string `json:"id_a"`
	IDB   string `json:"id_b"`
	Error string `json:"error"`
}
