package domain

import "time"

// Candidate is a single raw retrieved article. Candidates are ephemeral:
// they only exist within one scan run and are never persisted directly.
type Candidate struct {
	Title        string
	Summary      string
	URL          string
	Domain       string
	SourceName   string
	PublishedAt  time.Time
	ImageURL     string
	Language     string
	CategoryHint string

	// Score is a preliminary ranking signal assigned during the run,
	// used to order candidates before dedup so the strongest member
	// of a duplicate cluster survives.
	Score float64
}

// Tier is a source domain's admission classification.
type Tier int

const (
	TierUnclassified Tier = iota
	TierBypass
	TierConditionalPositive
	TierExcluded
)

func (t Tier) String() string {
	switch t {
	case TierBypass:
		return "bypass"
	case TierConditionalPositive:
		return "conditional"
	case TierExcluded:
		return "excluded"
	default:
		return "unclassified"
	}
}
