package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier sends events to Discord via webhook embeds.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordNotifier creates a DiscordNotifier. Discord allows bursts,
// so the limiter is set to 2 requests per second with a burst of 5.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(2.0, 5),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to a Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

// DiscordEmbedField is one labeled value inside an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

const (
	maxEmbedTitleLength       = 256
	maxEmbedDescriptionLength = 4096

	discordTruncationSuffix = "..."
)

// buildEmbedPayload maps an Event onto a single Discord embed.
func (d *DiscordNotifier) buildEmbedPayload(event Event) DiscordWebhookPayload {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	embed := DiscordEmbed{
		Title:       truncateText(event.Title, maxEmbedTitleLength, discordTruncationSuffix),
		Description: truncateText(event.Body, maxEmbedDescriptionLength, discordTruncationSuffix),
		Timestamp:   at.Format(time.RFC3339),
	}
	for _, f := range event.Fields {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   f.Label,
			Value:  f.Value,
			Inline: true,
		})
	}

	return DiscordWebhookPayload{Embeds: []DiscordEmbed{embed}}
}

// Notify delivers an event to the configured Discord webhook. It
// applies rate limiting, then posts with the shared retry strategy.
func (d *DiscordNotifier) Notify(ctx context.Context, event Event) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	if err := d.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(d.buildEmbedPayload(event))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return deliverWithRetry(ctx, "Discord", func(ctx context.Context) error {
		return postJSON(ctx, d.httpClient, "Discord", d.config.WebhookURL, payload)
	})
}
