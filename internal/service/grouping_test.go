package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicscan/internal/domain"
)

func TestGroupCandidates_MergesSameStory(t *testing.T) {
	candidates := []domain.Candidate{
		{Title: "Apagones masivos golpean a toda la isla", Domain: "14ymedio.com", Score: 90},
		{Title: "Apagones masivos golpean a toda la isla", Domain: "cibercuba.com", Score: 70},
		{Title: "Festival de cine abre su convocatoria anual", Domain: "cubanet.org", Score: 60},
	}

	clusters := groupCandidates(candidates, 0.55)

	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 1)
	// The representative is the highest-scored member.
	assert.Equal(t, "14ymedio.com", clusters[0][0].Domain)
}

func TestGroupCandidates_DistinctStoriesStaySeparate(t *testing.T) {
	candidates := []domain.Candidate{
		{Title: "Nuevo impuesto a las mipymes anunciado", Score: 50},
		{Title: "Tasa del dolar alcanza record historico", Score: 40},
	}

	clusters := groupCandidates(candidates, 0.55)
	assert.Len(t, clusters, 2)
}

func TestBuildTopic_RepresentativeAndSourceCap(t *testing.T) {
	now := time.Now()
	cluster := make([]domain.Candidate, 0, 7)
	for i := 0; i < 7; i++ {
		cluster = append(cluster, domain.Candidate{
			Title:       "Apagones masivos golpean a toda la isla",
			Summary:     "resumen",
			Domain:      "outlet.com",
			URL:         "https://outlet.com/a",
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
			Score:       float64(100 - i),
		})
	}
	cluster[0].ImageURL = "https://outlet.com/img.jpg"

	topic := buildTopic("acme", cluster, now)

	assert.Equal(t, "acme", topic.TenantID)
	assert.Equal(t, cluster[0].Title, topic.Title)
	assert.Equal(t, cluster[0].ImageURL, topic.ImageURL)
	assert.Equal(t, domain.TopicPending, topic.Status)
	require.Len(t, topic.Sources, maxSourcesPerTopic)
	// Most recent sources survive the cap.
	assert.Equal(t, now, topic.Sources[0].PublishedAt)
}

func TestBuildTopic_DistinctDomains(t *testing.T) {
	now := time.Now()
	cluster := []domain.Candidate{
		{Title: "t", Domain: "a.com", PublishedAt: now},
		{Title: "t", Domain: "b.com", PublishedAt: now},
		{Title: "t", Domain: "a.com", PublishedAt: now},
	}

	topic := buildTopic("acme", cluster, now)
	assert.Equal(t, 2, topic.DistinctDomains())
}
