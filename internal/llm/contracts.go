package llm

import (
	"context"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// ParseRequest carries one document's text into the structured-extraction
// prompt.
type ParseRequest struct {
	Text         string
	DocType      constants.DocumentType
	FilenameHint string
}

// FieldParser is stage 2: text -> typed record with per-field confidence.
// The raw model JSON is returned alongside for audit logging.
type FieldParser interface {
	ParseFields(ctx context.Context, req ParseRequest) (entity.ParsedRecord, []byte, error)
}
