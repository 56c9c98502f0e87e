package domain

// StrategyScores maps category label to a raw per-strategy score in [0,1].
type StrategyScores map[string]float64

// ClassificationDetail is the audit trail of one ensemble decision: the
// raw per-category scores of every strategy plus the weight profile used.
type ClassificationDetail struct {
	Profile    string         `json:"profile"`
	Rules      StrategyScores `json:"rules"`
	Similarity StrategyScores `json:"similarity"`
	External   StrategyScores `json:"external,omitempty"`
}

// ClassificationResult is the outcome of classifying one piece of text.
// Category is always a member of the closed category set.
type ClassificationResult struct {
	Category      string               `json:"category"`
	Confidence    float64              `json:"confidence"`
	LowConfidence bool                 `json:"low_confidence"`
	Detail        ClassificationDetail `json:"detail"`
}
