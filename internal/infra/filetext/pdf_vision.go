package filetext

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"postpilot/internal/resilience/circuitbreaker"
)

const visionSystem = "Extract plain text and tables as Markdown from the provided document. " +
	"Do NOT summarize or add commentary. Preserve language."

// VisionExtractor reads PDFs through the Anthropic document API,
// which handles scanned and image-only documents the native strategy
// cannot.
type VisionExtractor struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	model          string
	maxTokens      int
}

// NewVisionExtractor creates the vision PDF extractor. Requires an API
// key; the caller should fall back to the native strategy without one.
func NewVisionExtractor(apiKey, model string) (*VisionExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision pdf extraction requires ANTHROPIC_API_KEY")
	}
	return &VisionExtractor{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.AnthropicAPIConfig()),
		model:          model,
		maxTokens:      1500,
	}, nil
}

// Extract sends the whole PDF as a document block and returns the
// extracted Markdown.
func (v *VisionExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(data)

	result, err := v.circuitBreaker.Execute(func() (interface{}, error) {
		message, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(v.model),
			MaxTokens: int64(v.maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: visionSystem},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded}),
					anthropic.NewTextBlock("Extract plain text and tables as Markdown. Preserve language."),
				),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic api error: %w", err)
		}
		var b strings.Builder
		for _, block := range message.Content {
			if text, ok := block.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(text.Text)
			}
		}
		return b.String(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("vision extraction rejected, circuit breaker open")
			return "", fmt.Errorf("vision extraction unavailable: circuit breaker open")
		}
		return "", err
	}

	text := result.(string)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("vision extraction returned empty content")
	}
	return text, nil
}
