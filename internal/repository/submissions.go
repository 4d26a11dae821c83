package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Submission actions. Every gate decision is logged, not just successes.
const (
	ActionSubmitted    = "SUBMITTED"     // accepted record pushed to the CRM
	ActionRefused      = "REFUSED"       // rejected record blocked at the gate
	ActionFlagged      = "FLAGGED"       // needs-review record parked for a human
	ActionSubmitFailed = "SUBMIT_FAILED" // accepted record the CRM call failed on
)

// SubmissionEntry is one row of the audit log.
type SubmissionEntry struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	SourceFile   string
	DocumentType string
	Outcome      string
	Action       string
	Detail       string
	SubmittedRef string // CRM-side reference, empty unless submitted
	CreatedAt    time.Time
}

// SubmissionRepository persists gate decisions.
type SubmissionRepository interface {
	Log(ctx context.Context, e SubmissionEntry) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]SubmissionEntry, error)
	CountByAction(ctx context.Context) (map[string]int, error)
}

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Log(ctx context.Context, e SubmissionEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO submission_log
	(id, document_id, source_file, document_type, outcome, action, detail, submitted_ref, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID.String(), e.DocumentID.String(), e.SourceFile, e.DocumentType,
		e.Outcome, e.Action, e.Detail, e.SubmittedRef, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert submission log: %w", err)
	}
	return nil
}

func (r *submissionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]SubmissionEntry, error) {
	const q = `
SELECT id, document_id, source_file, document_type, outcome, action, detail, submitted_ref, created_at
FROM submission_log
WHERE document_id = ?
ORDER BY created_at ASC, rowid ASC`
	rows, err := r.db.QueryContext(ctx, q, documentID.String())
	if err != nil {
		return nil, fmt.Errorf("query submission log: %w", err)
	}
	defer rows.Close()

	var out []SubmissionEntry
	for rows.Next() {
		var e SubmissionEntry
		var id, docID string
		if err := rows.Scan(&id, &docID, &e.SourceFile, &e.DocumentType,
			&e.Outcome, &e.Action, &e.Detail, &e.SubmittedRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission log: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad submission id %q: %w", id, err)
		}
		if e.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, fmt.Errorf("bad document id %q: %w", docID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *submissionRepository) CountByAction(ctx context.Context) (map[string]int, error) {
	const q = `SELECT action, COUNT(*) FROM submission_log GROUP BY action`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count submission log: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	return out, rows.Err()
}
