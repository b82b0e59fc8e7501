package scraper

import (
	"testing"

	"github.com/mmcdole/gofeed"
)

// parseItem runs one RSS item through gofeed so extension and enclosure
// parsing matches what real feeds produce.
func parseItem(t *testing.T, itemXML string) *gofeed.Item {
	t.Helper()
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel><title>Feed</title>` + itemXML + `</channel></rss>`

	feed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("parsed %d items, want 1", len(feed.Items))
	}
	return feed.Items[0]
}

func TestExtractImagePriority(t *testing.T) {
	tests := []struct {
		name string
		item string
		want string
	}{
		{
			name: "media content beats thumbnail and enclosure",
			item: `<item><link>u</link>
				<media:content url="https://img.example.com/hero.jpg" type="image/jpeg"/>
				<media:thumbnail url="https://img.example.com/thumb.jpg"/>
				<enclosure url="https://img.example.com/enc.jpg" type="image/jpeg" length="1"/>
			</item>`,
			want: "https://img.example.com/hero.jpg",
		},
		{
			name: "thumbnail beats enclosure",
			item: `<item><link>u</link>
				<media:thumbnail url="https://img.example.com/thumb.jpg"/>
				<enclosure url="https://img.example.com/enc.jpg" type="image/jpeg" length="1"/>
			</item>`,
			want: "https://img.example.com/thumb.jpg",
		},
		{
			name: "enclosure beats content img",
			item: `<item><link>u</link>
				<enclosure url="https://img.example.com/enc.jpg" type="image/jpeg" length="1"/>
				<content:encoded><![CDATA[<img src="https://img.example.com/inline.jpg">]]></content:encoded>
			</item>`,
			want: "https://img.example.com/enc.jpg",
		},
		{
			name: "content img beats description img",
			item: `<item><link>u</link>
				<content:encoded><![CDATA[<img src="https://img.example.com/inline.jpg">]]></content:encoded>
				<description><![CDATA[<img src="https://img.example.com/desc.jpg">]]></description>
			</item>`,
			want: "https://img.example.com/inline.jpg",
		},
		{
			name: "description img as last resort",
			item: `<item><link>u</link>
				<description><![CDATA[<p>text</p><img src="https://img.example.com/desc.jpg">]]></description>
			</item>`,
			want: "https://img.example.com/desc.jpg",
		},
		{
			name: "untyped media content still wins",
			item: `<item><link>u</link>
				<media:content url="https://img.example.com/untyped.jpg"/>
				<description><![CDATA[<img src="https://img.example.com/desc.jpg">]]></description>
			</item>`,
			want: "https://img.example.com/untyped.jpg",
		},
		{
			name: "no image anywhere",
			item: `<item><link>u</link><description>plain text only</description></item>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractImageURL(parseItem(t, tt.item)); got != tt.want {
				t.Errorf("extractImageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractImageItemImageBeatsInlineImg(t *testing.T) {
	it := &gofeed.Item{
		Image:       &gofeed.Image{URL: "https://img.example.com/item.jpg"},
		Description: `<img src="https://img.example.com/desc.jpg">`,
	}
	if got := extractImageURL(it); got != "https://img.example.com/item.jpg" {
		t.Errorf("extractImageURL() = %q, want the item image field", got)
	}
}

func TestExtractImageSkipsTrackingPixels(t *testing.T) {
	item := `<item><link>u</link>
		<description><![CDATA[
			<img src="https://t.example.com/pixel.gif">
			<img src="https://stats.example.com/1x1.png">
			<img src="https://img.example.com/real.jpg">
		]]></description>
	</item>`
	if got := extractImageURL(parseItem(t, item)); got != "https://img.example.com/real.jpg" {
		t.Errorf("extractImageURL() = %q, want the first non-tracking image", got)
	}

	onlyPixels := `<item><link>u</link>
		<description><![CDATA[<img src="https://t.example.com/tracking.gif">]]></description>
	</item>`
	if got := extractImageURL(parseItem(t, onlyPixels)); got != "" {
		t.Errorf("extractImageURL() = %q, want empty when only tracking images exist", got)
	}
}

func TestExtractImageEnclosureByExtension(t *testing.T) {
	// No MIME type on the enclosure; the URL extension decides.
	item := `<item><link>u</link>
		<enclosure url="https://img.example.com/photo.png" length="1" type=""/>
	</item>`
	if got := extractImageURL(parseItem(t, item)); got != "https://img.example.com/photo.png" {
		t.Errorf("extractImageURL() = %q, want the png enclosure", got)
	}

	audio := `<item><link>u</link>
		<enclosure url="https://cdn.example.com/episode.mp3" length="1" type="audio/mpeg"/>
	</item>`
	if got := extractImageURL(parseItem(t, audio)); got != "" {
		t.Errorf("extractImageURL() = %q, want empty for an audio enclosure", got)
	}
}

func TestExtractImagePictureSourceFallback(t *testing.T) {
	item := `<item><link>u</link>
		<description><![CDATA[
			<picture><source srcset="https://img.example.com/small.webp 1x, https://img.example.com/big.webp 2x"></picture>
		]]></description>
	</item>`
	if got := extractImageURL(parseItem(t, item)); got != "https://img.example.com/small.webp" {
		t.Errorf("extractImageURL() = %q, want the first srcset candidate", got)
	}
}

func TestShouldSkipImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x.com/Pixel.gif", true},
		{"https://x.com/img/1x1.png", true},
		{"https://no-cache.hubspot.com/cta/default/123.png", true},
		{"https://x.com/photo.jpg", false},
	}
	for _, tt := range tests {
		if got := shouldSkipImage(tt.url); got != tt.want {
			t.Errorf("shouldSkipImage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
