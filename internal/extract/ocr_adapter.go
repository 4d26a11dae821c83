package extract

import (
	"context"
	"log/slog"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/ocr"
)

// OCRAdapter adapts the exec-based OCR engine to the TextExtractor contract.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string, hint constants.DocumentType) (entity.ExtractionResult, error) {
	a.logger.Debug("extract.start", "path", path, "hint", string(hint))
	r, err := a.e.Extract(ctx, path)
	return entity.ExtractionResult{
		Pages:      r.Pages,
		Method:     r.Method,
		Confidence: r.Confidence,
		Warnings:   r.Warnings,
		Duration:   r.Duration,
	}, err
}
