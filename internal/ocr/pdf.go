package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jmercado-dev/merchant-intake/internal/common"
)

// minEmbeddedTextLen is the threshold below which a PDF's embedded text layer
// is considered empty (a pure scan) and rasterized OCR takes over.
const minEmbeddedTextLen = 64

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	// Preflight before spending OCR time: a PDF pdfcpu cannot walk is
	// corrupt, not worth retrying.
	pageCount, err := e.preflightPDF(path)
	if err != nil {
		return Result{}, err
	}

	// Prefer the embedded text layer.
	res, err := e.pdfToText(ctx, path)
	if err == nil && len(strings.TrimSpace(strings.Join(res.Pages, ""))) >= minEmbeddedTextLen {
		res.Confidence = blendConfidence(0.95, heuristicConfidence(strings.Join(res.Pages, "\n")))
		return res, nil
	}
	if err != nil {
		e.logger.Warn("ocr.pdf.text_layer_failed", "path", path, "error", err)
	}

	// Fall back to rasterized OCR for scanned PDFs.
	ores, oerr := e.pdfToOCR(ctx, path, pageCount)
	if oerr != nil {
		return Result{}, oerr
	}
	ores.Warnings = append(ores.Warnings, "pdf text layer empty; used rasterized OCR")
	return ores, nil
}

// preflightPDF validates the file with pdfcpu and returns its page count.
func (e *Extractor) preflightPDF(path string) (int, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return 0, common.NewStageError("extract", common.FailureCorruptFile,
			fmt.Errorf("pdf preflight: %w", err))
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, common.NewStageError("extract", common.FailureCorruptFile,
			fmt.Errorf("pdf page count: %w", err))
	}
	if n == 0 {
		return 0, common.NewStageError("extract", common.FailureCorruptFile,
			fmt.Errorf("pdf has no pages"))
	}
	return n, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{}, e.classify(ctx, err, "pdftotext")
	}
	// A form-feed \f is the page separator.
	pages := strings.Split(string(out), "\f")
	for i := range pages {
		pages[i] = Normalize(pages[i])
	}
	return Result{Pages: pages, Method: "pdf-text"}, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string, pageCount int) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "intake-pp-*")
	if err != nil {
		return Result{}, common.NewStageError("extract", common.FailureEnvironment,
			fmt.Errorf("mkdir temp: %w", err))
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("ocr.pdf.tmp_cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, _, err = e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{}, e.classify(ctx, err, "pdftoppm")
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{}, common.NewStageError("extract", common.FailureCorruptFile,
			fmt.Errorf("pdftoppm produced no images (expected %d pages)", pageCount))
	}

	var pages []string
	var warns []string
	var confSum float32
	for _, img := range matches {
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			// Engine-level trouble (missing binary, timeout) aborts the
			// document so the retry policy sees it; a bad page degrades
			// to a warning and an empty page.
			cerr := e.classify(ctx, err, "tesseract")
			if common.IsTransient(cerr) {
				return Result{}, cerr
			}
			warns = append(warns, fmt.Sprintf("page %s: %v", filepath.Base(img), err))
			pages = append(pages, "")
			continue
		}
		txt = Normalize(txt)
		if strings.TrimSpace(txt) == "" {
			warns = append(warns, fmt.Sprintf("page %s: no text recognized", filepath.Base(img)))
		}
		pages = append(pages, txt)
		confSum += heuristicConfidence(txt)
	}

	conf := float32(0)
	if len(pages) > 0 {
		conf = confSum / float32(len(pages))
	}
	return Result{
		Pages:      pages,
		Method:     "pdf-ocr",
		Confidence: conf,
		Warnings:   warns,
	}, nil
}
