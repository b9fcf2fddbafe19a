// Package match implements the product matching cascade and the
// token-based similarity scoring it relies on.
//
// Matching proceeds in stages of decreasing strictness: an exact
// commercial-name lookup, a normalized-name lookup, and finally a fuzzy
// keyword search scored by token overlap. The similarity scorer is also
// reused by the reconciliation engine to compare invoice line
// descriptions against delivery-note line descriptions.
package match

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// DefaultFuzzyThreshold is the minimum similarity score the fuzzy stage
// accepts before falling back to creating a new catalog product. It is
// tunable through configuration.
const DefaultFuzzyThreshold = 0.75

// spanishStopWords are short function words that carry no discriminating
// power in product descriptions ("aceite de oliva" matches on "aceite"
// and "oliva" alone).
var spanishStopWords = map[string]struct{}{
	"de": {}, "del": {}, "con": {}, "sin": {}, "para": {},
	"por": {}, "los": {}, "las": {}, "una": {}, "uno": {},
}

// cleanTokens lowercases s, keeps only letters (accented included) and
// digits, and splits the result into tokens.
func cleanTokens(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// Keywords extracts up to three search keywords from a free-text product
// description: tokens longer than two runes that are not Spanish stop
// words, in order of appearance.
func Keywords(description string) []string {
	var out []string
	for _, tok := range cleanTokens(description) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, stop := spanishStopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Similarity scores the token overlap between two strings in [0, 1].
//
// Each query token earns 1.0 for an exact token match in the candidate,
// 0.8 for substring containment when both tokens are longer than three
// runes, and 0.6 for a near match (length difference at most two and
// either containment or Levenshtein distance at most two). The sum is
// divided by the larger of the two token counts, so extra unmatched
// tokens on either side dilute the score symmetrically.
func Similarity(query, candidate string) float64 {
	qTokens := cleanTokens(query)
	cTokens := cleanTokens(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	var sum float64
	for _, q := range qTokens {
		sum += bestAward(q, cTokens)
	}

	denom := len(qTokens)
	if len(cTokens) > denom {
		denom = len(cTokens)
	}
	score := sum / float64(denom)
	if score > 1 {
		score = 1
	}
	return score
}

// bestAward returns the highest award q earns against any candidate token.
func bestAward(q string, candidates []string) float64 {
	var best float64
	for _, c := range candidates {
		a := award(q, c)
		if a > best {
			best = a
			if best == 1.0 {
				break
			}
		}
	}
	return best
}

func award(q, c string) float64 {
	if q == c {
		return 1.0
	}
	qLen, cLen := len([]rune(q)), len([]rune(c))
	if qLen > 3 && cLen > 3 && (strings.Contains(q, c) || strings.Contains(c, q)) {
		return 0.8
	}
	diff := qLen - cLen
	if diff < 0 {
		diff = -diff
	}
	if diff <= 2 {
		if strings.Contains(q, c) || strings.Contains(c, q) {
			return 0.6
		}
		if levenshtein.ComputeDistance(q, c) <= 2 {
			return 0.6
		}
	}
	return 0
}

// ScoreNames scores query against both the commercial and normalized
// names of a catalog candidate and returns the better of the two.
func ScoreNames(query, commercialName, normalizedName string) float64 {
	s := Similarity(query, commercialName)
	if n := Similarity(query, normalizedName); n > s {
		s = n
	}
	return s
}
