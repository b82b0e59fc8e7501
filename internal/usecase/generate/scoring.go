package generate

import (
	"math"
	"regexp"
	"strings"
)

// Heuristic draft scoring, 0-100. Six axes with fixed caps: hook 25,
// structure 20, emotion 15, cta 15, topicality 15, readability 10.
// Deterministic so repeated scoring of the same draft never disagrees.

var emotionWords = map[string]bool{
	"amazing": true, "powerful": true, "broken": true, "love": true,
	"hate": true, "win": true, "fear": true, "delight": true,
	"frustration": true, "excited": true,
}

var (
	hookOpenerPattern = regexp.MustCompile(`^(\d+|how|why|what|vs\.)\b`)
	ctaPattern        = regexp.MustCompile(`(let me know|what do you think|agree\?|thoughts\?)`)
	wordPattern       = regexp.MustCompile(`[a-zA-Z]+`)
	anyWordPattern    = regexp.MustCompile(`\b\w+\b`)
	syllablePattern   = regexp.MustCompile(`[aeiouy]+`)
)

// ScoreText scores one draft against the source article's keyword
// weights (nil when the source was pasted text or a file). Returns the
// total and the per-axis breakdown.
func ScoreText(text string, keywords map[string]float64) (int, map[string]int) {
	breakdown := map[string]int{
		"hook":        hookQuality(text),
		"structure":   structureScore(text),
		"emotion":     emotionDensity(text),
		"cta":         ctaScore(text),
		"topicality":  topicality(text, keywords),
		"readability": readability(text),
	}
	total := 0
	for _, v := range breakdown {
		total += v
	}
	return total, breakdown
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func lastLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndexByte(trimmed, '\n'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func hookQuality(text string) int {
	first := firstLine(text)
	score := 0
	if strings.HasSuffix(first, "?") {
		score += 15
	}
	if hookOpenerPattern.MatchString(strings.ToLower(first)) {
		score += 10
	}
	if score > 25 {
		return 25
	}
	return score
}

func structureScore(text string) int {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paras = append(paras, strings.TrimSpace(p))
		}
	}
	score := 0
	if len(paras) >= 2 && len(paras) <= 4 {
		score += 10
	}
	if len(strings.Fields(firstLine(text))) <= 10 {
		score += 10
	}
	allShort := true
	for _, p := range paras {
		if len(strings.Fields(p)) > 60 {
			allShort = false
			break
		}
	}
	if allShort {
		score += 5
	}
	if score > 20 {
		return 20
	}
	return score
}

func emotionDensity(text string) int {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if emotionWords[t] {
			hits++
		}
	}
	rate := float64(hits) / float64(len(tokens))
	score := int(rate * 100)
	if score > 15 {
		return 15
	}
	return score
}

func ctaScore(text string) int {
	last := lastLine(text)
	if strings.HasSuffix(last, "?") {
		return 15
	}
	if ctaPattern.MatchString(strings.ToLower(last)) {
		return 15
	}
	return 0
}

func topicality(text string, keywords map[string]float64) int {
	if len(keywords) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, t := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[t] = true
	}
	var overlap float64
	for k, w := range keywords {
		if tokens[k] {
			overlap += w
		}
	}
	score := int(math.Min(overlap*100, 15))
	return score
}

// readability scores how close the draft sits to a Flesch reading ease
// of 70 (conversational English), losing a point per 5 units of drift.
func readability(text string) int {
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences < 1 {
		sentences = 1
	}
	words := anyWordPattern.FindAllString(text, -1)
	wordCount := len(words)
	if wordCount < 1 {
		wordCount = 1
	}
	syllables := 0
	for _, w := range words {
		n := len(syllablePattern.FindAllString(strings.ToLower(w), -1))
		if n < 1 {
			n = 1
		}
		syllables += n
	}
	if syllables < 1 {
		syllables = 1
	}

	flesch := 206.835 - 1.015*(float64(wordCount)/float64(sentences)) - 84.6*(float64(syllables)/float64(wordCount))
	diff := math.Abs(flesch - 70)
	score := 10 - int(diff/5)
	if score < 0 {
		return 0
	}
	return score
}
