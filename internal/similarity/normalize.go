package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks so that accented and
// unaccented spellings compare equal ("anuncia" == "anúncia").
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases, strips diacritics, collapses punctuation to
// single spaces and trims the result.
func Normalize(s string) string {
	s = StripDiacritics(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text into tokens longer than two characters.
func Tokens(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// TermFrequencies builds a token frequency vector from normalized text.
func TermFrequencies(s string) map[string]float64 {
	freq := make(map[string]float64)
	for _, tok := range Tokens(s) {
		freq[tok]++
	}
	return freq
}
