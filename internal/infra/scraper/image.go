package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// imageSkipPatterns mark tracking pixels, CTA buttons and other
// non-editorial images that must never become an article thumbnail.
var imageSkipPatterns = []string{"pixel", "tracking", "1x1", "/cta/", "no-cache.hubspot.com/cta"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// extractImageURL walks the common RSS image carriers in order of
// reliability: media:content, media:thumbnail, enclosures, the item
// image field, then the first usable <img> in content or description.
func extractImageURL(it *gofeed.Item) string {
	if url := fromMediaExtension(it, "content"); url != "" {
		return url
	}
	if url := fromMediaExtension(it, "thumbnail"); url != "" {
		return url
	}
	for _, enc := range it.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.Contains(enc.Type, "image") || hasImageExtension(enc.URL) {
			return enc.URL
		}
	}
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	if url := firstUsableImg(it.Content); url != "" {
		return url
	}
	return firstUsableImg(it.Description)
}

// fromMediaExtension pulls a URL out of a media:<name> extension.
// For media:content an element explicitly typed as an image wins;
// otherwise the first URL-bearing element is used.
func fromMediaExtension(it *gofeed.Item, name string) string {
	media, ok := it.Extensions["media"]
	if !ok {
		return ""
	}
	elems := media[name]
	if len(elems) == 0 {
		return ""
	}
	for _, el := range elems {
		url := el.Attrs["url"]
		if url == "" {
			continue
		}
		if strings.Contains(el.Attrs["type"], "image") || el.Attrs["medium"] == "image" {
			return url
		}
	}
	if name == "thumbnail" {
		return elems[0].Attrs["url"]
	}
	// media:content without explicit typing still usually is the hero image.
	return elems[0].Attrs["url"]
}

// firstUsableImg parses an HTML fragment and returns the first <img>
// src that does not match a skip pattern.
func firstUsableImg(htmlFragment string) string {
	if htmlFragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlFragment))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" || shouldSkipImage(src) {
			return true
		}
		found = src
		return false
	})
	if found != "" {
		return found
	}

	// picture > source fallback for feeds that omit a plain img tag.
	doc.Find("picture source").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("srcset")
		if !ok || src == "" {
			return true
		}
		candidate := strings.Fields(strings.Split(src, ",")[0])
		if len(candidate) == 0 || shouldSkipImage(candidate[0]) {
			return true
		}
		found = candidate[0]
		return false
	})
	return found
}

func shouldSkipImage(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range imageSkipPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func hasImageExtension(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}
