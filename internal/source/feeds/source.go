// Package feeds implements the direct feed retrieval strategy: per-domain
// RSS/Atom fetching with feed-path discovery, a positive cache of known
// feed paths and a time-boxed negative cache of domains that failed
// discovery.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"topicscan/internal/cache"
	"topicscan/internal/domain"
)

// ErrNoFeed is returned for domains where discovery found no usable
// feed. The domain enters the negative cache so discovery is not
// repeated until the entry expires.
var ErrNoFeed = errors.New("no feed found for domain")

// conventionalPaths are tried in order during discovery before falling
// back to scanning the homepage for alternate links.
var conventionalPaths = []string{
	"/feed",
	"/rss",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
}

// Config holds feed retrieval settings.
type Config struct {
	Scheme      string
	Timeout     time.Duration
	FeedPathTTL time.Duration
	NegativeTTL time.Duration
	UserAgent   string
}

func (c *Config) setDefaults() {
	if c.Scheme == "" {
		c.Scheme = "https"
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.FeedPathTTL == 0 {
		c.FeedPathTTL = 7 * 24 * time.Hour
	}
	if c.NegativeTTL == 0 {
		c.NegativeTTL = 24 * time.Hour
	}
	if c.UserAgent == "" {
		c.UserAgent = "TopicScan/1.0"
	}
}

// Source fetches candidates from per-domain feeds.
type Source struct {
	client     *http.Client
	parser     *gofeed.Parser
	scheme     string
	userAgent  string
	knownPaths *cache.Cache[string, string]
	misses     *cache.Cache[string, struct{}]
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	cfg.setDefaults()
	return &Source{
		client:     &http.Client{Timeout: cfg.Timeout},
		parser:     gofeed.NewParser(),
		scheme:     cfg.Scheme,
		userAgent:  cfg.UserAgent,
		knownPaths: cache.New[string, string](cfg.FeedPathTTL),
		misses:     cache.New[string, struct{}](cfg.NegativeTTL),
		logger:     logger.With("source", "feeds"),
	}
}

// Fetch retrieves all current items from a domain's feed, discovering
// the feed path when none is cached.
func (s *Source) Fetch(ctx context.Context, host string) ([]domain.Candidate, error) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	if _, missed := s.misses.Get(host); missed {
		return nil, fmt.Errorf("%s: %w", host, ErrNoFeed)
	}

	feedURL, err := s.knownPaths.GetOrCompute(host, func() (string, error) {
		return s.discover(ctx, host)
	})
	if err != nil {
		s.misses.Put(host, struct{}{})
		s.logger.Debug("feed discovery failed", "domain", host, "error", err)
		return nil, fmt.Errorf("%s: %w", host, ErrNoFeed)
	}

	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		// The cached path went stale; forget it so the next run
		// rediscovers instead of failing repeatedly.
		s.knownPaths.Delete(host)
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	return s.transform(feed, host), nil
}

// discover tries the conventional feed paths, then scans the homepage
// for an alternate link.
func (s *Source) discover(ctx context.Context, host string) (string, error) {
	base := s.scheme + "://" + host

	for _, path := range conventionalPaths {
		candidate := base + path
		if _, err := s.fetchFeed(ctx, candidate); err == nil {
			s.logger.Debug("discovered feed", "domain", host, "path", path)
			return candidate, nil
		}
	}

	if feedURL, err := s.discoverFromHomepage(ctx, base); err == nil {
		return feedURL, nil
	}

	return "", fmt.Errorf("no feed path at %s", host)
}

func (s *Source) discoverFromHomepage(ctx context.Context, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("homepage status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	href, found := "", false
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		if typ != "application/rss+xml" && typ != "application/atom+xml" {
			return true
		}
		if h, ok := sel.Attr("href"); ok && h != "" {
			href, found = h, true
			return false
		}
		return true
	})
	if !found {
		return "", fmt.Errorf("no alternate link on homepage")
	}

	resolved, err := resolveURL(base, href)
	if err != nil {
		return "", err
	}
	if _, err := s.fetchFeed(ctx, resolved); err != nil {
		return "", fmt.Errorf("alternate link unusable: %w", err)
	}
	return resolved, nil
}

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

func (s *Source) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	return s.parser.Parse(resp.Body)
}

func (s *Source) transform(feed *gofeed.Feed, host string) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(feed.Items))

	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		c := domain.Candidate{
			Title:       strings.TrimSpace(item.Title),
			Summary:     strings.TrimSpace(item.Description),
			URL:         strings.TrimSpace(item.Link),
			Domain:      host,
			SourceName:  strings.TrimSpace(feed.Title),
			PublishedAt: published,
		}
		if item.Image != nil {
			c.ImageURL = item.Image.URL
		}
		if len(item.Categories) > 0 {
			c.CategoryHint = strings.ToLower(strings.TrimSpace(item.Categories[0]))
		}

		candidates = append(candidates, c)
	}

	return candidates
}
