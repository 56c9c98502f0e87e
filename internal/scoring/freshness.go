// Package scoring computes the freshness, impact and confidence signals
// attached to topics. All functions are pure; the orchestrator supplies
// "now" so runs stay reproducible in tests.
package scoring

import (
	"math"
	"time"
)

// DefaultHalfLife is the freshness decay half-life.
const DefaultHalfLife = 24 * time.Hour

// Freshness returns an exponential-decay recency score in [0,1].
// Zero or future-only invalid timestamps score 0; articles published
// "now" score 1.
func Freshness(publishedAt, now time.Time, halfLife time.Duration) float64 {
	if publishedAt.IsZero() || halfLife <= 0 {
		return 0
	}

	age := now.Sub(publishedAt)
	if age < 0 {
		age = 0
	}

	score := math.Exp(-age.Hours() / halfLife.Hours())
	return clamp01(score)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
