package feeds

import (
	"net/url"
	"strings"
)

// defaultTrackingParams are query parameters stripped before URLs are
// compared for deduplication. Publishers decorate the same article
// with per-campaign values of these, which would defeat dedup.
var defaultTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"ref", "source", "fbclid", "gclid", "mc_cid", "mc_eid",
}

// URLNormalizer canonicalizes article URLs for deduplication.
// The zero value strips the default tracking parameters; deployments
// can add site-specific ones via ExtraTrackingParams.
type URLNormalizer struct {
	ExtraTrackingParams []string
}

// Normalize strips tracking parameters, the fragment and any trailing
// slash from the path. Remaining query parameters are re-encoded in
// sorted order so equivalent URLs compare equal. Unparsable input is
// returned unchanged.
func (n URLNormalizer) Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	tracking := make(map[string]bool, len(defaultTrackingParams)+len(n.ExtraTrackingParams))
	for _, p := range defaultTrackingParams {
		tracking[p] = true
	}
	for _, p := range n.ExtraTrackingParams {
		tracking[strings.ToLower(p)] = true
	}

	query := u.Query()
	for key := range query {
		if tracking[strings.ToLower(key)] {
			query.Del(key)
		}
	}

	u.RawQuery = query.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// NormalizeURL canonicalizes a URL with the default tracking set.
func NormalizeURL(rawURL string) string {
	return URLNormalizer{}.Normalize(rawURL)
}
