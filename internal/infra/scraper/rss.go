// Package scraper fetches and parses the RSS/Atom feeds in the
// catalog. It uses the gofeed library with a circuit breaker around
// the network path and converts feed items into domain entries.
package scraper

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"postpilot/internal/domain/entity"
	"postpilot/internal/feeds"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/resilience/circuitbreaker"
)

// maxEntriesPerFeed caps how many items are taken from a single feed
// per refresh. High-volume feeds would otherwise drown the rest.
const maxEntriesPerFeed = 50

// feedUserAgent mirrors a desktop browser; several publishers return
// 403 to anything that looks like a bot.
const feedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// RSSFetcher fetches a single feed and returns its parsed entries.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewRSSFetcher creates an RSSFetcher using the given HTTP client.
// The client should carry the per-feed timeout.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
	}
}

// Fetch retrieves and parses one feed. Feed URLs go through the same
// SSRF validation as article URLs before any request is made. Entries
// without a link are dropped; titles and summaries arrive HTML-free.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL, sourceName string) ([]entity.Entry, error) {
	if err := fetcher.ValidateURL(feedURL, true); err != nil {
		return nil, err
	}

	cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, feedURL, sourceName)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("circuit", "feed-fetch"),
				slog.String("url", feedURL),
				slog.String("state", f.circuitBreaker.State().String()))
		}
		return nil, err
	}
	return cbResult.([]entity.Entry), nil
}

func (f *RSSFetcher) doFetch(ctx context.Context, feedURL, sourceName string) ([]entity.Entry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = feedUserAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if len(items) > maxEntriesPerFeed {
		items = items[:maxEntriesPerFeed]
	}

	name := sourceName
	if name == "" {
		name = feed.Title
	}
	name = feeds.NormalizeSourceName(name)

	entries := make([]entity.Entry, 0, len(items))
	for _, it := range items {
		if it.Link == "" {
			continue
		}

		summary := it.Description
		if summary == "" && it.Content != "" {
			summary = it.Content
		}

		var publishedAt *time.Time
		if it.PublishedParsed != nil {
			t := *it.PublishedParsed
			publishedAt = &t
		} else if it.UpdatedParsed != nil {
			t := *it.UpdatedParsed
			publishedAt = &t
		}

		entries = append(entries, entity.Entry{
			Link:        it.Link,
			Title:       stripHTML(it.Title),
			Summary:     stripHTML(summary),
			ImageURL:    extractImageURL(it),
			PublishedAt: publishedAt,
			FeedURL:     feedURL,
			SourceName:  name,
		})
	}
	return entries, nil
}

// stripHTML removes markup and collapses whitespace in feed-provided
// text fields, which frequently arrive as HTML fragments.
func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, "")
	clean = html.UnescapeString(clean)
	return strings.Join(strings.Fields(clean), " ")
}
