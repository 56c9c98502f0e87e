// Package filter implements the domain-tier content filter: a cheap
// admission gate that runs before expensive scoring. Source domains are
// classified into bypass / conditional / excluded tiers; anything else
// falls through to a generic keyword check.
package filter

import (
	"net/url"
	"strings"

	"topicscan/internal/domain"
	"topicscan/internal/similarity"
)

// Config holds the hand-curated tier sets and keyword vocabularies.
// Tier membership is static configuration data, not an inferred signal.
type Config struct {
	Bypass           []string `yaml:"bypass"`
	Conditional      []string `yaml:"conditional"`
	Excluded         []string `yaml:"excluded"`
	PositiveKeywords []string `yaml:"positive_keywords"`
	NoiseKeywords    []string `yaml:"noise_keywords"`
	AllowedPaths     []string `yaml:"allowed_paths"`
}

// DefaultConfig returns the curated sets for Cuba-focused discovery.
// Bypass covers independent outlets whose entire output is in scope,
// excluded covers state propaganda outlets, conditional covers
// international outlets that publish mixed content.
func DefaultConfig() Config {
	return Config{
		Bypass: []string{
			"14ymedio.com",
			"cibercuba.com",
			"diariodecuba.com",
			"cubanet.org",
			"adncuba.com",
			"eltoque.com",
			"periodicocubano.com",
			"cubanoticias360.com",
		},
		Conditional: []string{
			"elpais.com",
			"bbc.com",
			"cnn.com",
			"reuters.com",
			"apnews.com",
			"elnuevoherald.com",
			"miamiherald.com",
			"univision.com",
			"telemundo.com",
			"infobae.com",
		},
		Excluded: []string{
			"granma.cu",
			"cubadebate.cu",
			"prensa-latina.cu",
			"juventudrebelde.cu",
			"tribuna.cu",
			"trabajadores.cu",
		},
		PositiveKeywords: []string{
			"cuba", "cubano", "cubana", "cubanos", "cubanas",
			"habana", "havana", "santiago de cuba", "matanzas",
			"camagüey", "holguín", "guantánamo", "pinar del río",
			"balseros", "embargo", "remesas", "mipymes", "etecsa",
		},
		NoiseKeywords: []string{
			"premier league", "nba finals", "super bowl",
			"bollywood", "k-pop", "eurovision",
			"bundesliga", "wimbledon", "formula 1",
		},
		AllowedPaths: []string{
			"/cuba", "/america-latina", "/latinoamerica", "/caribe",
		},
	}
}

// Filter answers tier classification and admission questions for one
// configured tenant.
type Filter struct {
	bypass      map[string]struct{}
	conditional map[string]struct{}
	excluded    map[string]struct{}
	positive    []string
	noise       []string
	paths       []string
}

func New(cfg Config) *Filter {
	f := &Filter{
		bypass:      toSet(cfg.Bypass),
		conditional: toSet(cfg.Conditional),
		excluded:    toSet(cfg.Excluded),
	}
	for _, k := range cfg.PositiveKeywords {
		if n := similarity.Normalize(k); n != "" {
			f.positive = append(f.positive, n)
		}
	}
	for _, k := range cfg.NoiseKeywords {
		if n := similarity.Normalize(k); n != "" {
			f.noise = append(f.noise, n)
		}
	}
	f.paths = append(f.paths, cfg.AllowedPaths...)
	return f
}

func toSet(domains []string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[normalizeHost(d)] = struct{}{}
	}
	return set
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// Classify returns the tier of a source hostname. Subdomains inherit
// their parent's tier.
func (f *Filter) Classify(host string) domain.Tier {
	host = normalizeHost(host)
	for h := host; h != ""; h = parentDomain(h) {
		if _, ok := f.excluded[h]; ok {
			return domain.TierExcluded
		}
		if _, ok := f.bypass[h]; ok {
			return domain.TierBypass
		}
		if _, ok := f.conditional[h]; ok {
			return domain.TierConditionalPositive
		}
	}
	return domain.TierUnclassified
}

func parentDomain(host string) string {
	i := strings.Index(host, ".")
	if i < 0 {
		return ""
	}
	parent := host[i+1:]
	if !strings.Contains(parent, ".") {
		return ""
	}
	return parent
}

// Admit decides whether a candidate passes the content filter given its
// domain's tier. Excluded sources are never admitted; bypass sources
// always are. Conditional and unclassified sources need a positive
// signal, and unclassified sources are additionally rejected when a
// noise signal dominates without any positive match.
func (f *Filter) Admit(c domain.Candidate, tier domain.Tier) bool {
	switch tier {
	case domain.TierExcluded:
		return false
	case domain.TierBypass:
		return true
	case domain.TierConditionalPositive:
		return f.HasPositiveSignal(c)
	default:
		// A positive match is never overridden by the noise check,
		// protecting true positives. Without one the candidate is
		// rejected whether it tripped the noise vocabulary or is
		// merely irrelevant.
		return f.HasPositiveSignal(c)
	}
}

// HasPositiveSignal reports a keyword match in the candidate's text or
// a topical URL path segment. Matching is diacritic-insensitive.
func (f *Filter) HasPositiveSignal(c domain.Candidate) bool {
	text := " " + similarity.Normalize(c.Title+" "+c.Summary) + " "
	for _, k := range f.positive {
		if strings.Contains(text, " "+k+" ") {
			return true
		}
	}

	if u, err := url.Parse(c.URL); err == nil {
		path := strings.ToLower(u.Path)
		for _, p := range f.paths {
			if strings.Contains(path, strings.ToLower(p)) {
				return true
			}
		}
	}
	return false
}

// HasNoiseSignal reports a match against the known off-topic global
// noise vocabulary.
func (f *Filter) HasNoiseSignal(c domain.Candidate) bool {
	text := " " + similarity.Normalize(c.Title+" "+c.Summary) + " "
	for _, k := range f.noise {
		if strings.Contains(text, " "+k+" ") {
			return true
		}
	}
	return false
}
