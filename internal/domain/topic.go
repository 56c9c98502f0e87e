package domain

import "time"

type TopicStatus string

const (
	TopicPending   TopicStatus = "pending"
	TopicSelected  TopicStatus = "selected"
	TopicGenerated TopicStatus = "generated"
	TopicArchived  TopicStatus = "archived"
)

// Confidence describes how trustworthy a topic's scoring is, derived from
// source count, source-domain uniqueness and temporal consensus.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SourceRef points at one article backing a topic.
type SourceRef struct {
	Medium      string    `json:"medium"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SubScores holds the independently computed components of a topic's
// impact score, each normalized to [0,100]. Kept for auditability.
type SubScores struct {
	Freshness float64 `json:"freshness"`
	Consensus float64 `json:"consensus"`
	Authority float64 `json:"authority"`
	Trend     float64 `json:"trend"`
	Relevance float64 `json:"relevance"`
	Novelty   float64 `json:"novelty"`
}

// Topic is a deduplicated, scored, classified cluster of one or more
// candidates representing a single news event. A topic always has at
// least one source reference and an impact in [0,100].
type Topic struct {
	ID         int64
	TenantID   string
	Title      string
	Summary    string
	Sources    []SourceRef
	Category   string
	Impact     int
	Confidence Confidence
	Scores     SubScores
	ImageURL   string
	Status     TopicStatus
	CreatedAt  time.Time
}

// DistinctDomains returns the number of unique source domains backing
// the topic.
func (t *Topic) DistinctDomains() int {
	seen := make(map[string]struct{}, len(t.Sources))
	for _, s := range t.Sources {
		seen[s.Medium] = struct{}{}
	}
	return len(seen)
}
