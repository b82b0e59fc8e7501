package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier sends events to Slack via Incoming Webhook using Block Kit.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a SlackNotifier. The rate limiter is pinned
// at 1 request per second, matching the Slack webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context", "divider"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"` // Actual text content
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload maps an Event onto Block Kit: a section with
// the title and body, a section per field group, and a context block
// with the timestamp.
func (s *SlackNotifier) buildBlockKitPayload(event Event) SlackWebhookPayload {
	fallbackText := truncateText(event.Title, maxFallbackLength, slackTruncationSuffix)

	sectionText := fmt.Sprintf("*%s*", event.Title)
	if event.Body != "" {
		sectionText += "\n\n" + event.Body
	}
	sectionText = truncateText(sectionText, maxSectionTextLength, slackTruncationSuffix)

	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: sectionText},
	}}

	if len(event.Fields) > 0 {
		fieldText := ""
		for _, f := range event.Fields {
			fieldText += fmt.Sprintf("*%s:* %s\n", f.Label, f.Value)
		}
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{Type: "mrkdwn", Text: truncateText(fieldText, maxSectionTextLength, slackTruncationSuffix)},
		})
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	blocks = append(blocks, SlackBlock{
		Type: "context",
		Elements: []SlackTextObject{
			{Type: "mrkdwn", Text: at.Format(time.RFC3339)},
		},
	})

	return SlackWebhookPayload{
		Text:   fallbackText,
		Blocks: blocks,
	}
}

// Notify delivers an event to the configured Slack webhook. It applies
// rate limiting, then posts with the shared retry strategy.
func (s *SlackNotifier) Notify(ctx context.Context, event Event) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(s.buildBlockKitPayload(event))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return deliverWithRetry(ctx, "Slack", func(ctx context.Context) error {
		return postJSON(ctx, s.httpClient, "Slack", s.config.WebhookURL, payload)
	})
}
