package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MinSimilarity is the lowest Jaro-Winkler similarity BestMatch accepts.
const MinSimilarity = 0.85

// BestMatch picks the candidate closest to target. An exact match wins, then a
// match after NormalizeName, then the most similar candidate by Jaro-Winkler
// as long as it reaches MinSimilarity.
func BestMatch(target string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == target {
			return c, true
		}
	}

	normalized := NormalizeName(target)
	for _, c := range candidates {
		if NormalizeName(c) == normalized {
			return c, true
		}
	}

	var mostSimilarity float64
	var mostSimilar string
	for _, c := range candidates {
		similarity := matchr.JaroWinkler(normalized, NormalizeName(c), false)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = c
		}
	}
	if mostSimilarity < MinSimilarity {
		return "", false
	}
	return mostSimilar, true
}
