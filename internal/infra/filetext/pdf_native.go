package filetext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// extractPDFNative reads page text concurrently with a bounded worker
// pool sharing one wall-clock deadline. Pages that fail or time out
// are omitted; only an entirely empty result is an error.
func extractPDFNative(ctx context.Context, data []byte, cfg Config) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()
	if pageCount > cfg.PDFMaxPages {
		pageCount = cfg.PDFMaxPages
	}
	if pageCount == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.PDFTimeout)
	defer cancel()

	pages := make([]string, pageCount)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.PDFWorkers)

	for i := 1; i <= pageCount; i++ {
		pageNum := i
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return nil // deadline hit, keep what we have
			default:
			}
			text, err := extractPage(reader, pageNum)
			if err != nil {
				slog.Debug("pdf page extraction failed",
					slog.Int("page", pageNum),
					slog.Any("error", err))
				return nil
			}
			pages[pageNum-1] = text
			return nil
		})
	}
	_ = eg.Wait()

	var parts []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text in pdf pages")
	}
	return strings.Join(parts, "\n\n"), nil
}

// extractPage reads one page, containing the library's panics on
// malformed content streams to a per-page failure.
func extractPage(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d panicked: %v", pageNum, r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", pageNum)
	}
	return page.GetPlainText(nil)
}
