package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
)

// Config for the exec-based OCR engine.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"

	Lang     string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit
}

// Result is the raw engine output; the extract adapter maps it onto the
// pipeline's ExtractionResult contract.
type Result struct {
	Pages      []string
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Confidence float32
	Warnings   []string
	Duration   time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on file extension. Errors carry a stage
// failure kind so the pipeline can decide retryability.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("ocr.extract.unsupported_ext", "extension", ext)
		return Result{}, common.NewStageError("extract", common.FailureUnsupportedFormat,
			fmt.Errorf("unsupported extension: %q", ext))
	}
}

// Healthcheck verifies the tesseract binary responds. Used by the CLI
// --check mode.
func (e *Extractor) Healthcheck(ctx context.Context) error {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, "--version")
	if err != nil {
		return e.classify(ctx, err, "tesseract --version")
	}
	e.logger.Info("ocr.healthcheck.ok", "version", firstLine(string(out)))
	return nil
}

// classify maps exec failures onto the stage failure taxonomy: a missing
// binary or context timeout is transient-ish environment trouble, anything
// else is blamed on the input file.
func (e *Extractor) classify(ctx context.Context, err error, op string) error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return common.NewStageError("extract", common.FailureEngineUnavailable,
			fmt.Errorf("%s: %w", op, err))
	case ctx.Err() != nil:
		return common.NewStageError("extract", common.FailureTimeout,
			fmt.Errorf("%s: %w", op, ctx.Err()))
	default:
		return common.NewStageError("extract", common.FailureCorruptFile,
			fmt.Errorf("%s: %w", op, err))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
