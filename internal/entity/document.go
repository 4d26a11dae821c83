package entity

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jmercado-dev/merchant-intake/constants"
)

// Document is a source file reference plus its detected type. Immutable once
// enqueued.
type Document struct {
	ID         uuid.UUID              `json:"id"`
	SourcePath string                 `json:"source_path"`
	Type       constants.DocumentType `json:"type"`
	EnqueuedAt time.Time              `json:"enqueued_at"`
}

// NewDocument builds a Document for a file path, guessing the type from the
// file name.
func NewDocument(path string) Document {
	return Document{
		ID:         uuid.New(),
		SourcePath: path,
		Type:       constants.DetectFromFilename(filepath.Base(path)),
		EnqueuedAt: time.Now().UTC(),
	}
}

// FileName returns the base name of the source file.
func (d Document) FileName() string {
	return filepath.Base(d.SourcePath)
}

// ExtractionResult holds the OCR output for one document. Created by the
// extract stage, never mutated afterwards.
type ExtractionResult struct {
	Pages      []string      `json:"pages"`
	Method     string        `json:"method"` // "pdf-text" | "pdf-ocr" | "image-ocr"
	Confidence float32       `json:"confidence"`
	Warnings   []string      `json:"warnings,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// PageCount returns the number of extracted pages.
func (r ExtractionResult) PageCount() int { return len(r.Pages) }

// Text joins all pages into a single document text.
func (r ExtractionResult) Text() string {
	switch len(r.Pages) {
	case 0:
		return ""
	case 1:
		return r.Pages[0]
	}
	n := 0
	for _, p := range r.Pages {
		n += len(p) + 2
	}
	buf := make([]byte, 0, n)
	for i, p := range r.Pages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}
