package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Cuba Announces  ", "cuba announces"},
		{"diacritics stripped", "Régimen anúncia más restricciónes", "regimen anuncia mas restricciones"},
		{"punctuation collapsed", "Cuba: new rules, effective now!", "cuba new rules effective now"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTokens_DropsShortTokens(t *testing.T) {
	assert.Equal(t, []string{"cuba"}, Tokens("Cuba as of it"))
	assert.Equal(t, []string{"cuba", "announces", "new", "rules"}, Tokens("Cuba announces new rules"))
}

func TestJaccard(t *testing.T) {
	a := []string{"cuba", "announces", "new", "currency", "rules"}
	b := []string{"cuba", "announces", "new", "currency", "rules", "today"}

	assert.InDelta(t, 5.0/6.0, Jaccard(a, b), 1e-9)
	assert.Equal(t, 0.0, Jaccard(nil, b))
	assert.Equal(t, 0.0, Jaccard(nil, nil))
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("cuba", "cuba"))
	assert.Equal(t, 0.0, LevenshteinSimilarity("", ""))
	assert.InDelta(t, 0.5, LevenshteinSimilarity("ab", "aX"), 1e-9)
}

func TestCosine(t *testing.T) {
	a := map[string]float64{"cuba": 1, "rules": 1}
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.Equal(t, 0.0, Cosine(a, map[string]float64{"weather": 1}))
	assert.Equal(t, 0.0, Cosine(a, nil))
}

func TestCombined_AccentVariantsAreDuplicates(t *testing.T) {
	// Same event rendered with and without diacritics must normalize
	// to the same tokens and score as an exact match.
	s := Combined("Cuba anuncia nuevas reglas de moneda", "Cuba anúncia nuevas reglas de móneda")
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestCombined_HighOverlapTitles(t *testing.T) {
	s := Combined("Cuba announces new currency rules", "Cuba announces new currency rules today")
	assert.GreaterOrEqual(t, s, DefaultThreshold)
}

func TestCombined_UnrelatedTitles(t *testing.T) {
	s := Combined("Cuba announces new currency rules", "Local team wins baseball championship")
	assert.Less(t, s, DefaultThreshold)
}

func TestCombined_EmptyTitleNeverMatches(t *testing.T) {
	assert.Equal(t, 0.0, Combined("", "Cuba announces new currency rules"))
	assert.Equal(t, 0.0, Combined("   ", ""))
}

func TestIsDuplicate(t *testing.T) {
	corpus := []string{
		"Cuba announces new currency rules",
		"Blackouts expected across the island this week",
	}

	dup, match := IsDuplicate("Cuba announces new currency rules today", corpus, DefaultThreshold)
	assert.True(t, dup)
	assert.Equal(t, corpus[0], match.Text)

	dup, _ = IsDuplicate("Hurricane season forecast released", corpus, DefaultThreshold)
	assert.False(t, dup)
}
