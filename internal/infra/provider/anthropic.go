// Package provider implements the LLM backends behind the generation
// pipeline: Anthropic and OpenAI adapters sharing one prompt layer,
// each guarded by a circuit breaker. Constructed without an API key,
// a provider degrades to a deterministic stub so the pipeline stays
// fully testable without credentials.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"postpilot/internal/domain/entity"
	"postpilot/internal/resilience/circuitbreaker"
	"postpilot/internal/usecase/generate"
)

// Anthropic implements generate.Provider on the Anthropic Messages API.
type Anthropic struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
	stub           bool
}

// NewAnthropic creates the Anthropic provider. An empty API key yields
// a deterministic stub that never calls the network.
func NewAnthropic(apiKey string, config Config) *Anthropic {
	if apiKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set, anthropic provider runs in stub mode")
	}
	return &Anthropic{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.AnthropicAPIConfig()),
		config:         config,
		stub:           apiKey == "",
	}
}

// Name implements generate.Provider.
func (a *Anthropic) Name() entity.Provider { return entity.ProviderAnthropic }

// Model implements generate.Provider.
func (a *Anthropic) Model() string {
	if a.stub {
		return a.config.Model + "-stub"
	}
	return a.config.Model
}

// ExtractFacts implements generate.Provider.
func (a *Anthropic) ExtractFacts(ctx context.Context, sourceText string) ([]string, error) {
	if a.stub {
		return stubFacts(sourceText), nil
	}
	response, err := a.complete(ctx, factsSystem, factsPrompt(sourceText))
	if err != nil {
		return nil, err
	}
	return parseFacts(response), nil
}

// DraftFromFacts implements generate.Provider.
func (a *Anthropic) DraftFromFacts(ctx context.Context, facts []string, req generate.DraftRequest) (string, error) {
	if a.stub {
		return stubDraft(strings.Join(facts, "\n"), req), nil
	}
	return a.complete(ctx, draftSystem(req), draftFromFactsPrompt(facts))
}

// DraftFromSource implements generate.Provider.
func (a *Anthropic) DraftFromSource(ctx context.Context, sourceText string, req generate.DraftRequest) (string, error) {
	if a.stub {
		return stubDraft(sourceText, req), nil
	}
	return a.complete(ctx, draftSystem(req), draftFromSourcePrompt(sourceText))
}

// complete runs one Messages call through the circuit breaker.
func (a *Anthropic) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	result, err := a.circuitBreaker.Execute(func() (interface{}, error) {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.config.Model),
			MaxTokens: int64(a.config.MaxTokens),
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic api error: %w", err)
		}
		if len(message.Content) == 0 {
			return nil, fmt.Errorf("anthropic api returned empty response")
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
			slog.Warn("anthropic api circuit breaker open, request rejected",
				slog.String("state", a.circuitBreaker.State().String()))
			return "", fmt.Errorf("anthropic api unavailable: circuit breaker open")
		}
		return "", err
	}
	return result.(string), nil
}

// stubFacts derives pseudo-facts from the first sentences of the
// source, enough to drive the two-pass path in tests.
func stubFacts(source string) []string {
	var facts []string
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 120 {
			line = line[:120]
		}
		facts = append(facts, line)
		if len(facts) == 3 {
			break
		}
	}
	return facts
}
