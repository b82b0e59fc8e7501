// Package main provides the genctl CLI for running one draft
// generation against a configured LLM provider.
//
// Usage:
//
//	genctl -user <id> [-provider anthropic|openai] \
//	  (-text "..." | -article <id> | -url <link> | -file notes.pdf) \
//	  [-hook ID] [-persona ID] [-tone ID] [-goal ID] [-length ID] [-ending ID] \
//	  [-variants N] [-output json]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"postpilot/internal/domain/entity"
	"postpilot/internal/infra/adapter/persistence/postgres"
	"postpilot/internal/infra/db"
	"postpilot/internal/infra/fetcher"
	"postpilot/internal/infra/filetext"
	"postpilot/internal/infra/provider"
	"postpilot/internal/observability/logging"
	"postpilot/internal/resilience/circuitbreaker"
	"postpilot/internal/usecase/generate"
)

// DraftOutput is the JSON shape for one generated draft.
type DraftOutput struct {
	ID             string         `json:"id"`
	Model          string         `json:"model"`
	Score          int            `json:"score"`
	ScoreBreakdown map[string]int `json:"score_breakdown"`
	DraftText      string         `json:"draft_text"`
}

func main() {
	var (
		userID       string
		providerName string
		text         string
		articleID    string
		sourceURL    string
		filePath     string
		variants     int
		outputFormat string
		timeout      time.Duration
		knobs        generate.Knobs
	)

	flag.StringVar(&userID, "user", "", "user ID to charge quota against (required)")
	flag.StringVar(&providerName, "provider", "anthropic", "LLM provider: anthropic or openai")
	flag.StringVar(&text, "text", "", "pasted source text")
	flag.StringVar(&articleID, "article", "", "ingested article ID to draft from")
	flag.StringVar(&sourceURL, "url", "", "article URL to draft from")
	flag.StringVar(&filePath, "file", "", "path to a txt, md, pdf or docx source file")
	flag.IntVar(&variants, "variants", 1, "number of drafts to generate (1-3)")
	flag.StringVar(&outputFormat, "output", "text", "output format: text or json")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "overall generation deadline")
	flag.StringVar(&knobs.HookType, "hook", "", "hook type option ID (empty means auto)")
	flag.StringVar(&knobs.Persona, "persona", "", "persona option ID (empty means auto)")
	flag.StringVar(&knobs.Tone, "tone", "", "tone option ID (empty means auto)")
	flag.StringVar(&knobs.Goal, "goal", "", "goal option ID (empty means auto)")
	flag.StringVar(&knobs.Length, "length", "", "length option ID (empty means auto)")
	flag.StringVar(&knobs.Ending, "ending", "", "ending option ID (empty means auto)")
	flag.Parse()

	if userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		flag.Usage()
		os.Exit(1)
	}
	if text == "" && articleID == "" && sourceURL == "" && filePath == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -text, -article, -url or -file is required")
		flag.Usage()
		os.Exit(1)
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	req := generate.Request{
		UserID:    userID,
		Provider:  entity.ParseProvider(providerName),
		Text:      text,
		ArticleID: articleID,
		URL:       sourceURL,
		Variants:  variants,
		Knobs:     knobs,
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", filePath, err)
			os.Exit(1)
		}
		req.FileName = filePath
		req.FileData = data
	}

	database, err := db.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: migrations failed: %v\n", err)
		os.Exit(1)
	}

	svc, err := setupGenerateService(logger, database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := svc.Generate(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generation failed: %v\n", err)
		os.Exit(1)
	}

	if outputFormat == "json" {
		printJSON(result)
	} else {
		printText(result)
	}
}

// setupGenerateService wires every provider that has an API key
// configured. At least one key must be present.
func setupGenerateService(logger *slog.Logger, database *sql.DB) (*generate.Service, error) {
	providers := make(map[entity.Provider]generate.Provider)
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		providers[entity.ProviderAnthropic] = provider.NewAnthropic(key, provider.LoadAnthropicConfig())
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers[entity.ProviderOpenAI] = provider.NewOpenAI(key, provider.LoadOpenAIConfig())
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider configured, set ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}

	breaker := circuitbreaker.NewDBCircuitBreaker(database)
	userRepo := postgres.NewUserRepo(breaker)
	articleRepo := postgres.NewArticleRepo(breaker)
	generationRepo := postgres.NewGenerationRepo(breaker)

	var contentFetcher generate.ContentFetcher
	contentConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid content fetch configuration, URL sources disabled",
			slog.Any("error", err))
	} else if contentConfig.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentConfig)
	}

	extractConfig := filetext.LoadConfigFromEnv()
	var vision *filetext.VisionExtractor
	if extractConfig.PDFStrategy == filetext.StrategyVision {
		key := os.Getenv("ANTHROPIC_API_KEY")
		vision, err = filetext.NewVisionExtractor(key, provider.LoadAnthropicConfig().Model)
		if err != nil {
			logger.Warn("vision extractor unavailable, using native PDF extraction",
				slog.Any("error", err))
			extractConfig.PDFStrategy = filetext.StrategyNative
		}
	}
	fileExtractor := filetext.NewExtractor(extractConfig, vision)

	return generate.NewService(
		userRepo,
		articleRepo,
		generationRepo,
		providers,
		contentFetcher,
		fileExtractor,
	), nil
}

func printText(result *generate.Result) {
	for i, draft := range result.Drafts {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("--- Draft %d (model %s, score %d) ---\n", i+1, draft.Model, draft.Score)
		fmt.Println(draft.DraftText)
	}
}

func printJSON(result *generate.Result) {
	out := make([]DraftOutput, 0, len(result.Drafts))
	for _, draft := range result.Drafts {
		out = append(out, DraftOutput{
			ID:             draft.ID,
			Model:          draft.Model,
			Score:          draft.Score,
			ScoreBreakdown: draft.ScoreBreakdown,
			DraftText:      draft.DraftText,
		})
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)
}
