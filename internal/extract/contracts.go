package extract

import (
	"context"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// TextExtractor is stage 1: file -> text. The hint is the enqueue-time
// document type guess; engines may use it to tune segmentation.
type TextExtractor interface {
	Extract(ctx context.Context, path string, hint constants.DocumentType) (entity.ExtractionResult, error)
}
