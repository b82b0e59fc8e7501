package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"postpilot/internal/domain/entity"
	"postpilot/internal/resilience/circuitbreaker"
	"postpilot/internal/usecase/generate"
)

// OpenAI implements generate.Provider on the Chat Completions API.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
	stub           bool
}

// NewOpenAI creates the OpenAI provider. An empty API key yields a
// deterministic stub that never calls the network.
func NewOpenAI(apiKey string, config Config) *OpenAI {
	if apiKey == "" {
		slog.Warn("OPENAI_API_KEY not set, openai provider runs in stub mode")
	}
	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		config:         config,
		stub:           apiKey == "",
	}
}

// Name implements generate.Provider.
func (o *OpenAI) Name() entity.Provider { return entity.ProviderOpenAI }

// Model implements generate.Provider.
func (o *OpenAI) Model() string {
	if o.stub {
		return o.config.Model + "-stub"
	}
	return o.config.Model
}

// ExtractFacts implements generate.Provider.
func (o *OpenAI) ExtractFacts(ctx context.Context, sourceText string) ([]string, error) {
	if o.stub {
		return stubFacts(sourceText), nil
	}
	response, err := o.complete(ctx, factsSystem, factsPrompt(sourceText))
	if err != nil {
		return nil, err
	}
	return parseFacts(response), nil
}

// DraftFromFacts implements generate.Provider.
func (o *OpenAI) DraftFromFacts(ctx context.Context, facts []string, req generate.DraftRequest) (string, error) {
	if o.stub {
		return stubDraft(strings.Join(facts, "\n"), req), nil
	}
	return o.complete(ctx, draftSystem(req), draftFromFactsPrompt(facts))
}

// DraftFromSource implements generate.Provider.
func (o *OpenAI) DraftFromSource(ctx context.Context, sourceText string, req generate.DraftRequest) (string, error) {
	if o.stub {
		return stubDraft(sourceText, req), nil
	}
	return o.complete(ctx, draftSystem(req), draftFromSourcePrompt(sourceText))
}

// complete runs one chat completion through the circuit breaker.
func (o *OpenAI) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     o.config.Model,
			MaxTokens: o.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("openai api error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("openai api returned empty response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("openai api circuit breaker open, request rejected",
				slog.String("state", o.circuitBreaker.State().String()))
			return "", fmt.Errorf("openai api unavailable: circuit breaker open")
		}
		return "", err
	}
	return result.(string), nil
}
