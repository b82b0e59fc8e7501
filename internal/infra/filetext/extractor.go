// Package filetext turns uploaded source files (txt, docx, pdf) into
// plain text for the generation pipeline. PDF extraction supports two
// interchangeable strategies selected by configuration: native text
// extraction and vision-model extraction.
package filetext

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"postpilot/internal/observability/metrics"
	"postpilot/pkg/config"
)

// PDF extraction strategies.
const (
	StrategyNative = "native"
	StrategyVision = "vision"
)

// Config holds the extraction tunables.
type Config struct {
	// MaxChars caps the extracted text length.
	MaxChars int

	// PDFStrategy selects the PDF path: StrategyNative or StrategyVision.
	PDFStrategy string

	// PDFMaxPages bounds how many pages are read.
	PDFMaxPages int

	// PDFWorkers bounds the native strategy's page worker pool.
	PDFWorkers int

	// PDFTimeout is the shared wall-clock budget for one PDF.
	PDFTimeout time.Duration
}

// DefaultConfig returns the standard extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxChars:    8000,
		PDFStrategy: StrategyNative,
		PDFMaxPages: 30,
		PDFWorkers:  4,
		PDFTimeout:  45 * time.Second,
	}
}

// LoadConfigFromEnv reads the extraction settings from the environment.
//
// Environment variables:
//   - FILE_MAX_CHARS: extracted text cap (default 8000)
//   - PDF_EXTRACT_STRATEGY: native or vision (default native)
//   - PDF_MAX_PAGES: page bound (default 30)
//   - PDF_NATIVE_WORKERS: page worker pool size (default 4)
//   - PDF_EXTRACT_TIMEOUT: wall-clock budget per PDF (default 45s)
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxChars:    config.GetEnvInt("FILE_MAX_CHARS", 8000),
		PDFStrategy: config.GetEnvString("PDF_EXTRACT_STRATEGY", StrategyNative),
		PDFMaxPages: config.GetEnvInt("PDF_MAX_PAGES", 30),
		PDFWorkers:  config.GetEnvInt("PDF_NATIVE_WORKERS", 4),
		PDFTimeout:  config.GetEnvDuration("PDF_EXTRACT_TIMEOUT", 45*time.Second),
	}
	if cfg.PDFStrategy != StrategyNative && cfg.PDFStrategy != StrategyVision {
		slog.Warn("unknown PDF_EXTRACT_STRATEGY, using native",
			slog.String("value", cfg.PDFStrategy))
		cfg.PDFStrategy = StrategyNative
	}
	return cfg
}

// Extractor dispatches uploads by file extension.
type Extractor struct {
	config Config
	vision *VisionExtractor // nil unless the vision strategy is configured
}

// NewExtractor creates a file text extractor. vision may be nil when
// the native PDF strategy is configured.
func NewExtractor(config Config, vision *VisionExtractor) *Extractor {
	return &Extractor{config: config, vision: vision}
}

// Extract returns plain text for the uploaded file. Unknown extensions
// are treated as plain text, matching how users actually upload notes.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	start := time.Now()

	var (
		text string
		kind string
		err  error
	)
	switch ext {
	case "docx":
		kind = "docx"
		text, err = extractDocx(data)
	case "pdf":
		text, kind, err = e.extractPDF(ctx, data)
	default:
		kind = "txt"
		text = extractTxt(data)
	}
	metrics.RecordFileExtraction(kind, time.Since(start))
	if err != nil {
		return "", err
	}

	text = truncate(cleanText(text), e.config.MaxChars)
	if text == "" {
		return "", fmt.Errorf("no text extracted from %s", filename)
	}
	return text, nil
}

// extractPDF runs the configured strategy. Each strategy is
// independently best-effort; only producing no text at all is an error.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, string, error) {
	if e.config.PDFStrategy == StrategyVision && e.vision != nil {
		text, err := e.vision.Extract(ctx, data)
		return text, "pdf_vision", err
	}
	text, err := extractPDFNative(ctx, data, e.config)
	return text, "pdf_native", err
}

var (
	brPattern      = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	hyphenBreak    = regexp.MustCompile(`(\w)-\n(\w)`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	oddWhitespace  = regexp.MustCompile(`[\t\x0b\x0c]+`)
	repeatedSpaces = regexp.MustCompile(` +`)
)

// cleanText normalizes extracted text: HTML remnants stripped, carriage
// returns and hyphenated line breaks joined, whitespace collapsed.
func cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	t := brPattern.ReplaceAllString(raw, "\n")
	t = tagPattern.ReplaceAllString(t, " ")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = hyphenBreak.ReplaceAllString(t, "$1$2")
	t = excessNewlines.ReplaceAllString(t, "\n\n")
	t = oddWhitespace.ReplaceAllString(t, " ")
	t = repeatedSpaces.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
