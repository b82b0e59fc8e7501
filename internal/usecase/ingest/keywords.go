package ingest

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	minKeywordLength = 4  // tokens shorter than this are noise words
	maxKeywords      = 15 // keep only the most frequent tokens
)

// ExtractTopics derives a keyword frequency map from an article's title
// and summary. Tokens are lowercased, purely alphabetic and at least
// four characters long; each keeps its frequency normalized by the
// total token count, rounded to four decimals. Only the top entries by
// raw count survive, so the map stays small enough to index.
func ExtractTopics(title, summary string) map[string]float64 {
	counts := make(map[string]int)
	total := 0

	for _, token := range strings.Fields(strings.ToLower(title + " " + summary)) {
		if len(token) < minKeywordLength || !isAlpha(token) {
			continue
		}
		counts[token]++
		total++
	}
	if total == 0 {
		return map[string]float64{}
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > maxKeywords {
		tokens = tokens[:maxKeywords]
	}

	topics := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		freq := float64(counts[token]) / float64(total)
		topics[token] = math.Round(freq*10000) / 10000
	}
	return topics
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
