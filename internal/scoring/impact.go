package scoring

import (
	"math"
	"strings"
	"time"

	"topicscan/internal/domain"
	"topicscan/internal/similarity"
)

// Weights configures the contribution of each impact sub-score. The
// defaults sum to 1.0; the vocabulary bonus is additive on top and is
// deliberately not folded into the normalization.
type Weights struct {
	Recency   float64
	Consensus float64
	Authority float64
	Trend     float64
	Relevance float64
	Novelty   float64
}

func DefaultWeights() Weights {
	return Weights{
		Recency:   0.25,
		Consensus: 0.20,
		Authority: 0.15,
		Trend:     0.15,
		Relevance: 0.15,
		Novelty:   0.10,
	}
}

// vocabBonusWeight caps how much the viral/political vocabulary term can
// move the final score in either direction.
const vocabBonusWeight = 0.30

// Impact combines the six sub-scores (each in [0,100]) with the
// configured weights, adds the weighted vocabulary bonus, and clamps
// the result to [0,100].
func Impact(sub domain.SubScores, w Weights, vocabBonus float64) int {
	total := w.Recency*sub.Freshness +
		w.Consensus*sub.Consensus +
		w.Authority*sub.Authority +
		w.Trend*sub.Trend +
		w.Relevance*sub.Relevance +
		w.Novelty*sub.Novelty

	total += vocabBonusWeight * vocabBonus

	return int(math.Round(math.Min(100, math.Max(0, total))))
}

// ConsensusScore is a step function of how many distinct sources report
// the same event.
func ConsensusScore(distinctSources int) float64 {
	switch {
	case distinctSources >= 5:
		return 100
	case distinctSources == 4:
		return 80
	case distinctSources == 3:
		return 60
	case distinctSources == 2:
		return 40
	case distinctSources == 1:
		return 20
	default:
		return 0
	}
}

// AuthorityTable maps source domains to reputation scores in [0,100].
type AuthorityTable map[string]float64

// DefaultAuthorityScore is assigned to outlets not in the table.
const DefaultAuthorityScore = 60

// Authority averages the reputation of the given source domains.
func (t AuthorityTable) Authority(domains []string) float64 {
	if len(domains) == 0 {
		return DefaultAuthorityScore
	}

	var total float64
	for _, d := range domains {
		if score, ok := t[strings.ToLower(d)]; ok {
			total += score
		} else {
			total += DefaultAuthorityScore
		}
	}
	return total / float64(len(domains))
}

// TrendScore measures publication velocity: the share of sources that
// published within the recent window, scaled to [0,100].
func TrendScore(timestamps []time.Time, now time.Time, window time.Duration) float64 {
	if len(timestamps) == 0 {
		return 0
	}

	recent := 0
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		if now.Sub(ts) <= window {
			recent++
		}
	}
	return 100 * float64(recent) / float64(len(timestamps))
}

// RelevanceScore counts topical vocabulary hits in the text, saturating
// at five distinct matches.
func RelevanceScore(text string, vocabulary []string) float64 {
	normalized := " " + similarity.Normalize(text) + " "
	hits := 0
	for _, term := range vocabulary {
		t := similarity.Normalize(term)
		if t == "" {
			continue
		}
		if strings.Contains(normalized, " "+t+" ") {
			hits++
			if hits >= 5 {
				break
			}
		}
	}
	return 100 * float64(hits) / 5
}

// NoveltyScore is the inverse of the topic's best similarity against
// recently seen titles: unseen events score 100.
func NoveltyScore(title string, recentTitles []string) float64 {
	best := 0.0
	for _, prev := range recentTitles {
		if s := similarity.Combined(title, prev); s > best {
			best = s
		}
	}
	return 100 * (1 - best)
}

// VocabularyBonus derives the additive bonus from domain-specific
// vocabulary: viral/technical terms push the score up, political terms
// pull it down. The raw term count difference is capped at ±5 before
// scaling so the bonus cannot dominate the weighted sum.
func VocabularyBonus(text string, viral, political []string) float64 {
	normalized := " " + similarity.Normalize(text) + " "

	count := func(terms []string) int {
		n := 0
		for _, term := range terms {
			t := similarity.Normalize(term)
			if t != "" && strings.Contains(normalized, " "+t+" ") {
				n++
			}
		}
		return n
	}

	diff := count(viral) - count(political)
	if diff > 5 {
		diff = 5
	}
	if diff < -5 {
		diff = -5
	}
	return 20 * float64(diff)
}

// ConfidenceTier derives a topic's discrete confidence from its source
// diversity and temporal agreement. High requires at least three
// distinct domains, consensus >= 60 and all timestamps within 48h of
// each other.
func ConfidenceTier(distinctDomains int, consensus float64, timestamps []time.Time) domain.Confidence {
	if distinctDomains >= 3 && consensus >= 60 && withinWindow(timestamps, 48*time.Hour) {
		return domain.ConfidenceHigh
	}
	if distinctDomains >= 2 && consensus >= 40 {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

func withinWindow(timestamps []time.Time, window time.Duration) bool {
	var earliest, latest time.Time
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}
	if earliest.IsZero() {
		return false
	}
	return latest.Sub(earliest) <= window
}
