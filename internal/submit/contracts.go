package submit

import (
	"context"

	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// Result is the CRM side's acknowledgement of one submission.
type Result struct {
	Reference string // CRM-side identifier for the created record
	Detail    string
}

// Submitter pushes an accepted document's record to the CRM. Implementations
// must be safe for sequential reuse; the gate serializes calls.
type Submitter interface {
	Submit(ctx context.Context, doc entity.ProcessedDocument) (Result, error)
}
