package submit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// MockSubmitter is the stand-in CRM used until the real integration lands.
// It fabricates a reference per submission and remembers what it saw.
type MockSubmitter struct {
	mu   sync.Mutex
	seen []uuid.UUID
}

func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{}
}

func (m *MockSubmitter) Submit(_ context.Context, doc entity.ProcessedDocument) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, doc.Document.ID)

	name := ""
	if doc.Record != nil {
		if fv := doc.Record.Field(constants.FieldLegalBusinessName); fv.Kind == entity.FieldPresent {
			name = fv.Value
		}
	}
	return Result{
		Reference: "MOCK-" + uuid.NewSHA1(uuid.NameSpaceOID, doc.Document.ID[:]).String()[:8],
		Detail:    fmt.Sprintf("mock CRM accepted %q", name),
	}, nil
}

// Submitted returns the document IDs submitted so far, in order.
func (m *MockSubmitter) Submitted() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, len(m.seen))
	copy(out, m.seen)
	return out
}
