package domain

import "time"

// MergePlan is handed to the record store for each merge action.
// FieldUpdates is keyed by storage column name.
type MergePlan struct {
	SurvivorID   string                 `json:"survivor_id"`
	LoserID      string                 `json:"loser_id"`
	FieldUpdates map[string]interface{} `json:"field_updates"`
	Score        float64                `json:"score"`
	MatchID      string                 `json:"match_id"`
}

// ReviewItem is handed to the review queue for each flagged pair
type ReviewItem struct {
	IDA        string     `json:"id_a"`
	IDB        string     `json:"id_b"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	Details    string     `json:"details"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MergeOutcome records the result of applying one plan
type MergeOutcome struct {
	Plan    MergePlan `json:"plan"`
	Applied bool      `json:"applied"`
	Error   string    `json:"error,omitempty"`
}
