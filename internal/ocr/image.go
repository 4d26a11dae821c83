package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ImageConfidenceThreshold flags low-confidence image OCR for review.
const ImageConfidenceThreshold = 0.6

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{}, e.classify(ctx, err, "tesseract")
	}
	txt = Normalize(txt)

	var warns []string
	ocrConf, tsvErr := e.tesseractTSVConfidence(ctx, path)
	if tsvErr != nil {
		warns = append(warns, "tsv confidence unavailable: "+tsvErr.Error())
	}
	conf := blendConfidence(ocrConf, heuristicConfidence(txt))
	if conf < ImageConfidenceThreshold {
		warns = append(warns, fmt.Sprintf("low image OCR confidence %.2f", conf))
	}

	return Result{
		Pages:      []string{txt},
		Method:     "image-ocr",
		Confidence: conf,
		Warnings:   warns,
	}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 256))
	}
	return string(out), nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word
// confidence in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang, "tsv")
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-2]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, perr := strconv.ParseFloat(confStr, 64); perr == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float32(sum / n / 100.0), nil
}

// blendConfidence weights the engine's own confidence higher when present.
func blendConfidence(ocrConf, heurConf float32) float32 {
	var conf float32
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	} else {
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
