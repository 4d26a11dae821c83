package constants

// ProcessingStatus is the canonical per-document status for a pipeline run.
type ProcessingStatus string

// Stable values (these exact strings appear in exports and the audit log).
const (
	StatusPending    ProcessingStatus = "PENDING"    // enqueued, not started (or skipped on cancel)
	StatusExtracting ProcessingStatus = "EXTRACTING" // OCR stage in progress
	StatusParsing    ProcessingStatus = "PARSING"    // LLM stage in progress
	StatusValidating ProcessingStatus = "VALIDATING" // rule stage in progress
	StatusComplete   ProcessingStatus = "COMPLETE"   // terminal success
	StatusFailed     ProcessingStatus = "FAILED"     // terminal failure
)

// Terminal reports whether the status ends the document's run.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// CanTransition enforces the forward-only state machine. Failed is reachable
// from any non-terminal state and is terminal.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	order := map[ProcessingStatus]int{
		StatusPending:    0,
		StatusExtracting: 1,
		StatusParsing:    2,
		StatusValidating: 3,
		StatusComplete:   4,
	}
	cur, ok1 := order[s]
	nxt, ok2 := order[next]
	return ok1 && ok2 && nxt == cur+1
}

// Outcome is the three-way validation verdict on a parsed record.
type Outcome string

const (
	OutcomeAccepted    Outcome = "ACCEPTED"
	OutcomeRejected    Outcome = "REJECTED"
	OutcomeNeedsReview Outcome = "NEEDS_REVIEW"
)
