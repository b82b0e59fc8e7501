package feeds

import "strings"

// sourceAliases folds the name variants that feeds self-report into
// the canonical display name used across stored articles. Keys are
// compared case-insensitively after trimming, so casing variants
// collapse without separate entries.
var sourceAliases = map[string]string{
	"yahoo":               "Yahoo Finance",
	"yahoo!":              "Yahoo Finance",
	"finance":             "Yahoo Finance",
	"yahoo finance":       "Yahoo Finance",
	"investing":           "Investing.com",
	"cnbc":                "CNBC",
	"marketwatch":         "MarketWatch",
	"techcrunch":          "TechCrunch",
	"techcrunch startups": "TechCrunch",
	"venturebeat":         "VentureBeat",
	"hubspot":             "HubSpot",
	"hubspot marketing":   "HubSpot Marketing",
	"guardian":            "The Guardian",
	"theguardian":         "The Guardian",
	"thehackersnews":      "The Hacker News",
	"hackernews":          "The Hacker News",
}

// NormalizeSourceName maps a feed-reported source name onto its
// canonical form. Unknown names pass through trimmed; an empty name
// becomes "Unknown".
func NormalizeSourceName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "Unknown"
	}
	if canonical, ok := sourceAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
