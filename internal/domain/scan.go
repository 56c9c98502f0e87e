package domain

import (
	"errors"
	"time"
)

// ErrScanInProgress is returned when a scan is requested for a tenant
// that already has one running. It is a non-retryable conflict: callers
// should wait for the current run to finish, not queue behind it.
var ErrScanInProgress = errors.New("scan already in progress for tenant")

// ScanConfig is the per-tenant configuration snapshot taken at the start
// of a run. It is read-only for the duration of the run.
type ScanConfig struct {
	TenantID             string         `json:"tenant_id"`
	MaxTopics            int            `json:"max_topics"`
	FreshnessWindowHours int            `json:"freshness_window_hours"`
	PerSourceCap         int            `json:"per_source_cap"`
	StrictMode           bool           `json:"strict_mode"`
	AllowedDomains       []string       `json:"allowed_domains"`
	FeedDomains          []string       `json:"feed_domains"`
	Queries              []string       `json:"queries"`
	Languages            []string       `json:"languages"`
	CategoryQuotas       map[string]int `json:"category_quotas"`
	PriorityCategories   []string       `json:"priority_categories"`
}

// ScanRun is the transient execution context of one orchestrated scan.
type ScanRun struct {
	ID        string
	TenantID  string
	StartedAt time.Time
	Config    ScanConfig
}

type ScanStatus string

const (
	ScanSucceeded ScanStatus = "succeeded"
	ScanFailed    ScanStatus = "failed"
)

// ScanSummary is the persisted outcome record of one run. On failure it
// still carries whatever partial counts were produced.
type ScanSummary struct {
	RunID             string
	TenantID          string
	Status            ScanStatus
	TopicsFound       int
	SourcesUsed       int
	CandidatesFetched int
	DuplicatesSkipped int
	Duration          time.Duration
	Error             string
}
