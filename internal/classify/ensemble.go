// Package classify assigns categories from a closed label set by
// combining three strategies: keyword rules, description similarity and
// an optional external classifier.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"topicscan/internal/domain"
	"topicscan/internal/similarity"
)

// ExternalClassifier is the optional pluggable strategy. It must return
// exactly one label from the closed category set; anything else is
// discarded by the ensemble.
type ExternalClassifier interface {
	ClassifyText(ctx context.Context, title, summary string) (string, error)
}

// WeightProfile names one fixed shape of strategy weights. Profiles are
// explicit so adding a strategy cannot silently redistribute weights.
type WeightProfile struct {
	Name       string
	Rules      float64
	External   float64
	Similarity float64
}

var (
	ProfileWithExternal = WeightProfile{Name: "with-external", Rules: 0.35, External: 0.40, Similarity: 0.25}
	ProfileRulesOnly    = WeightProfile{Name: "rules-only", Rules: 0.55, External: 0, Similarity: 0.45}
)

const (
	// avoidDefaultThreshold switches away from the default category
	// when another one scores at least this much.
	avoidDefaultThreshold = 0.55
	// lowConfidenceThreshold marks results whose best combined score
	// stays below it.
	lowConfidenceThreshold = 0.50
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"los": {}, "las": {}, "del": {}, "por": {}, "para": {}, "con": {},
	"una": {}, "uno": {}, "que": {}, "mas": {}, "sus": {}, "ante": {},
	"sobre": {}, "entre": {}, "tras": {}, "como": {}, "sin": {},
}

// Ensemble is the weighted multi-strategy classifier.
type Ensemble struct {
	external  ExternalClassifier
	logger    *slog.Logger
	descFreqs map[string]map[string]float64
}

// New builds an ensemble. A nil external classifier selects the
// rules-only weight profile.
func New(external ExternalClassifier, logger *slog.Logger) *Ensemble {
	e := &Ensemble{
		external:  external,
		logger:    logger.With("component", "classifier"),
		descFreqs: make(map[string]map[string]float64, len(categoryDescriptions)),
	}
	for cat, desc := range categoryDescriptions {
		e.descFreqs[cat] = contentFrequencies(desc)
	}
	return e
}

// Classify runs all available strategies over the text and applies the
// decision policy. The hint, when valid, is adopted only on
// low-confidence outcomes. The result's category is always a member of
// the closed set, and the full per-strategy breakdown is returned for
// auditability.
func (e *Ensemble) Classify(ctx context.Context, title, body, hint string) domain.ClassificationResult {
	profile := ProfileRulesOnly
	if e.external != nil {
		profile = ProfileWithExternal
	}

	rules := e.ruleScores(title, body)
	sim := e.similarityScores(title + " " + body)

	var ext domain.StrategyScores
	var extErr error
	if e.external != nil {
		ext, extErr = e.externalScores(ctx, title, body)
	}

	combined := make(map[string]float64, len(categories))
	for _, cat := range categories {
		combined[cat] = profile.Rules*rules[cat] + profile.Similarity*sim[cat]
		if ext != nil {
			combined[cat] += profile.External * ext[cat]
		}
	}

	detail := domain.ClassificationDetail{
		Profile:    profile.Name,
		Rules:      rules,
		Similarity: sim,
		External:   ext,
	}

	// A failed external call degrades the whole decision to the default
	// category with the low-confidence flag. This is distinct from an
	// invalid label, which only zeroes the external scores and lets the
	// remaining strategies decide.
	if extErr != nil {
		return domain.ClassificationResult{
			Category:      DefaultCategory,
			Confidence:    combined[DefaultCategory],
			LowConfidence: true,
			Detail:        detail,
		}
	}

	winner, score := pickWinner(combined)

	// The default category only wins when nothing else comes close.
	if winner == DefaultCategory {
		if alt, altScore := pickRunnerUp(combined); alt != "" && altScore >= avoidDefaultThreshold {
			winner, score = alt, altScore
		}
	}

	low := score < lowConfidenceThreshold
	if low && hint != "" && IsValid(hint) {
		winner = hint
	}

	return domain.ClassificationResult{
		Category:      winner,
		Confidence:    score,
		LowConfidence: low,
		Detail:        detail,
	}
}

// ruleScores counts keyword occurrences per category, weighting title
// matches twice, normalized by the best category's raw score.
func (e *Ensemble) ruleScores(title, body string) domain.StrategyScores {
	titleText := " " + similarity.Normalize(title) + " "
	bodyText := " " + similarity.Normalize(body) + " "

	raw := make(map[string]float64, len(categories))
	max := 0.0
	for cat, keywords := range categoryKeywords {
		var count float64
		for _, kw := range keywords {
			needle := " " + kw + " "
			count += 2 * float64(strings.Count(titleText, needle))
			count += float64(strings.Count(bodyText, needle))
		}
		raw[cat] = count
		if count > max {
			max = count
		}
	}

	scores := make(domain.StrategyScores, len(categories))
	for _, cat := range categories {
		if max > 0 {
			scores[cat] = raw[cat] / max
		} else {
			scores[cat] = 0
		}
	}
	return scores
}

// similarityScores compares the input's token frequency vector against
// each category's fixed prose description.
func (e *Ensemble) similarityScores(text string) domain.StrategyScores {
	input := contentFrequencies(text)

	scores := make(domain.StrategyScores, len(categories))
	for _, cat := range categories {
		scores[cat] = similarity.Cosine(input, e.descFreqs[cat])
	}
	return scores
}

// externalScores asks the external classifier for a single label. An
// invalid label contributes zero everywhere; a call error is reported
// back so the caller can degrade the decision. The run is never aborted
// by a classification failure.
func (e *Ensemble) externalScores(ctx context.Context, title, body string) (domain.StrategyScores, error) {
	scores := make(domain.StrategyScores, len(categories))
	for _, cat := range categories {
		scores[cat] = 0
	}

	label, err := e.external.ClassifyText(ctx, title, excerpt(body, 600))
	if err != nil {
		e.logger.Warn("external classifier failed", "error", err)
		return scores, err
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if !IsValid(label) {
		e.logger.Warn("external classifier returned unknown label", "label", label)
		return scores, nil
	}

	scores[label] = 1
	return scores, nil
}

func contentFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, tok := range similarity.Tokens(text) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		freq[tok]++
	}
	return freq
}

func pickWinner(scores map[string]float64) (string, float64) {
	// Ties resolve by canonical category order, so a dead heat with the
	// default category keeps the default; the avoid-default rule then
	// decides whether a strong runner-up takes over.
	winner, best := DefaultCategory, -1.0
	for _, cat := range categories {
		if scores[cat] > best {
			winner, best = cat, scores[cat]
		}
	}
	return winner, best
}

func pickRunnerUp(scores map[string]float64) (string, float64) {
	winner, best := "", -1.0
	for _, cat := range categories {
		if cat == DefaultCategory {
			continue
		}
		if scores[cat] > best {
			winner, best = cat, scores[cat]
		}
	}
	return winner, best
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
