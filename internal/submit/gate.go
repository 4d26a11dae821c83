package submit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/repository"
)

// Gate enforces the outcome policy in front of the CRM: only accepted
// documents go through, and every decision (including refusals) lands in the
// audit log.
type Gate struct {
	submitter Submitter
	audit     repository.SubmissionRepository
	logger    *slog.Logger
}

func NewGate(submitter Submitter, audit repository.SubmissionRepository, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{submitter: submitter, audit: audit, logger: logger}
}

// Dispatch routes one terminal document. Incomplete or failed documents are
// refused outright; for completed ones the validation outcome decides.
// A failed CRM call is audited as SUBMIT_FAILED before the error is
// returned, so the log is complete even on a partial run.
func (g *Gate) Dispatch(ctx context.Context, doc entity.ProcessedDocument) (string, error) {
	entry := repository.SubmissionEntry{
		DocumentID:   doc.Document.ID,
		SourceFile:   doc.Document.FileName(),
		DocumentType: string(doc.Document.Type),
		Outcome:      string(doc.Outcome),
	}

	switch {
	case doc.Status != constants.StatusComplete:
		entry.Action = repository.ActionRefused
		entry.Detail = fmt.Sprintf("document not complete: status %s", doc.Status)
	case doc.Outcome == constants.OutcomeRejected:
		entry.Action = repository.ActionRefused
		entry.Detail = fmt.Sprintf("rejected by validation: %d errors", doc.ErrorCount())
	case doc.Outcome == constants.OutcomeNeedsReview:
		entry.Action = repository.ActionFlagged
		entry.Detail = fmt.Sprintf("parked for review: %d warnings", doc.WarningCount())
	default:
		res, err := g.submitter.Submit(ctx, doc)
		if err != nil {
			entry.Action = repository.ActionSubmitFailed
			entry.Detail = err.Error()
			if aerr := g.audit.Log(ctx, entry); aerr != nil {
				g.logger.Error("submit.audit_failed",
					"doc_id", doc.Document.ID.String(),
					"error", aerr,
				)
			}
			g.logger.Error("submit.failed",
				"doc_id", doc.Document.ID.String(),
				"file", doc.Document.FileName(),
				"error", err,
			)
			return "", fmt.Errorf("submit %s: %w", doc.Document.FileName(), err)
		}
		entry.Action = repository.ActionSubmitted
		entry.SubmittedRef = res.Reference
		entry.Detail = res.Detail
	}

	if err := g.audit.Log(ctx, entry); err != nil {
		return "", fmt.Errorf("audit %s: %w", doc.Document.FileName(), err)
	}
	g.logger.Info("submit.dispatched",
		"doc_id", doc.Document.ID.String(),
		"file", doc.Document.FileName(),
		"action", entry.Action,
		"ref", entry.SubmittedRef,
	)
	return entry.Action, nil
}

// DispatchBatch routes every document and keeps going past per-document
// submission errors; the first error is returned at the end.
func (g *Gate) DispatchBatch(ctx context.Context, docs []entity.ProcessedDocument) (map[string]int, error) {
	counts := make(map[string]int)
	var firstErr error
	for _, d := range docs {
		action, err := g.Dispatch(ctx, d)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		counts[action]++
	}
	return counts, firstErr
}
