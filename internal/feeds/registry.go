// Package feeds holds the embedded feed catalog: the fixed set of
// content categories and the RSS feeds that populate each of them.
// The catalog is the single source of truth for which category an
// entry belongs to; the mapping is derived from the feed URL the
// entry arrived on, never from caller-supplied hints.
package feeds

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Feed is one RSS source inside a category.
type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Category groups feeds under a stable slug.
type Category struct {
	Slug  string `yaml:"slug"`
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
	Feeds []Feed `yaml:"feeds"`
}

// Registry is the parsed catalog plus the reverse index from
// normalized feed key to category slug.
type Registry struct {
	categories []Category
	bySlug     map[string]*Category
	byFeedKey  map[string]feedBinding
}

type feedBinding struct {
	slug       string
	sourceName string
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

// Load parses the embedded catalog. It fails on duplicate slugs or
// feed URLs that collide after normalization, since a feed bound to
// two categories would make ingestion non-deterministic.
func Load() (*Registry, error) {
	return parse(catalogYAML)
}

func parse(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse feed catalog: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("feed catalog is empty")
	}

	reg := &Registry{
		categories: file.Categories,
		bySlug:     make(map[string]*Category, len(file.Categories)),
		byFeedKey:  make(map[string]feedBinding),
	}
	for i := range file.Categories {
		cat := &reg.categories[i]
		if cat.Slug == "" {
			return nil, fmt.Errorf("feed catalog: category %d has no slug", i)
		}
		if _, dup := reg.bySlug[cat.Slug]; dup {
			return nil, fmt.Errorf("feed catalog: duplicate slug %q", cat.Slug)
		}
		reg.bySlug[cat.Slug] = cat
		for _, f := range cat.Feeds {
			key := FeedKey(f.URL)
			if key == "" {
				return nil, fmt.Errorf("feed catalog: unparsable feed URL %q in %q", f.URL, cat.Slug)
			}
			if prev, dup := reg.byFeedKey[key]; dup && prev.slug != cat.Slug {
				return nil, fmt.Errorf("feed catalog: feed %q bound to both %q and %q", f.URL, prev.slug, cat.Slug)
			}
			reg.byFeedKey[key] = feedBinding{slug: cat.Slug, sourceName: f.Name}
		}
	}
	return reg, nil
}

// Categories returns the catalog order as declared.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Slugs returns every category slug in catalog order.
func (r *Registry) Slugs() []string {
	out := make([]string, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c.Slug)
	}
	return out
}

// Category returns the category for a slug.
func (r *Registry) Category(slug string) (Category, bool) {
	c, ok := r.bySlug[slug]
	if !ok {
		return Category{}, false
	}
	return *c, true
}

// CategoryForFeed resolves a feed URL to the slug it is registered
// under. The lookup tolerates scheme, case and trailing-slash drift.
func (r *Registry) CategoryForFeed(feedURL string) (string, bool) {
	b, ok := r.byFeedKey[FeedKey(feedURL)]
	if !ok {
		return "", false
	}
	return b.slug, true
}

// SourceForFeed returns the display name registered for a feed URL.
func (r *Registry) SourceForFeed(feedURL string) (string, bool) {
	b, ok := r.byFeedKey[FeedKey(feedURL)]
	if !ok {
		return "", false
	}
	return b.sourceName, true
}

// FeedKey reduces a feed URL to the host+path form used for registry
// lookups: lowercase, no scheme, no query, no trailing slash. Feeds
// are frequently redeclared with http/https or trailing-slash
// variations; the key makes those collide on purpose.
func FeedKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	key := strings.ToLower(u.Host) + strings.ToLower(u.Path)
	return strings.TrimSuffix(key, "/")
}
