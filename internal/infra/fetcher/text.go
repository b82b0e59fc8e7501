package fetcher

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	inlineSpace    = regexp.MustCompile(`[ \t\x0b\x0c]+`)
)

// CleanText normalizes whitespace in extracted text: carriage returns
// become newlines, runs of blank lines collapse to one, and runs of
// inline whitespace collapse to a single space.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r", "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	s = inlineSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

const truncateSep = "\n\n[...snip...]\n\n"

// SmartTruncate reduces text to at most maxChars runes while keeping
// the beginning, a slice from the middle, and the end of the document.
// Head-only truncation would feed a model nothing but the headline and
// lede; this keeps later context in play. Very small budgets fall back
// to head-only since the three-part split is not worth the separators.
func SmartTruncate(text string, maxChars int) string {
	t := []rune(CleanText(text))
	if len(t) <= maxChars {
		return string(t)
	}
	if maxChars < 800 {
		return string(t[:maxChars])
	}

	startLen := maxChars * 45 / 100
	midLen := maxChars * 15 / 100
	endLen := maxChars - startLen - midLen - 80

	start := strings.TrimRight(string(t[:startLen]), " \t\n")
	midStart := len(t)/2 - midLen/2
	if midStart < 0 {
		midStart = 0
	}
	mid := strings.TrimSpace(string(t[midStart : midStart+midLen]))
	end := ""
	if endLen > 0 {
		end = strings.TrimLeft(string(t[len(t)-endLen:]), " \t\n")
	}

	out := strings.TrimSpace(start + truncateSep + mid + truncateSep + end)
	outRunes := []rune(out)
	if len(outRunes) > maxChars {
		outRunes = outRunes[:maxChars]
	}
	return string(outRunes)
}
