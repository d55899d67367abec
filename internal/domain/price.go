package domain

// PriceAction is the suggested handling of a price variation group
type PriceAction string

const (
	PriceUseAverage              PriceAction = "use_average"
	PriceUseMedian               PriceAction = "use_median"
	PriceFlagForReview           PriceAction = "flag_for_review"
	PriceLikelyDifferentProducts PriceAction = "likely_different_products"
)

// PriceStats summarizes the positive prices of a group
type PriceStats struct {
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	Average                float64 `json:"average"`
	Median                 float64 `json:"median"`
	StdDev                 float64 `json:"stddev"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Count                  int     `json:"count"`
	OutliersRemoved        int     `json:"outliers_removed"`
}

// PriceVariationGroup is a set of records believed to be one product
type PriceVariationGroup struct {
	NormalizedKey   string      `json:"normalized_key"`
	Members         []Record    `json:"members"`
	Stats           PriceStats  `json:"stats"`
	SuggestedAction PriceAction `json:"suggested_action"`
	PrimaryID       string      `json:"primary_id"`
	CanonicalPrice  float64     `json:"canonical_price,omitempty"`
}

// PriceSummary aggregates price groups for reporting
type PriceSummary struct {
	TotalGroups          int                 `json:"total_groups"`
	ActionCounts         map[PriceAction]int `json:"action_counts"`
	AverageVariation     float64             `json:"average_variation"`
	HighVariationGroups  int                 `json:"high_variation_groups"`
	TotalRecordsInGroups int                 `json:"total_records_in_groups"`
}
