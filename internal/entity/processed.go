package entity

import (
	"sort"
	"time"

	"github.com/jmercado-dev/merchant-intake/constants"
)

// StageAttempts records how many attempts each retryable stage used.
type StageAttempts struct {
	Extract int `json:"extract"`
	Parse   int `json:"parse"`
}

// ProcessedDocument is the terminal aggregate for one document's run.
// Read-only once Status is terminal.
type ProcessedDocument struct {
	Document      Document
	Extraction    *ExtractionResult
	Record        *ParsedRecord
	Findings      []Finding
	Status        constants.ProcessingStatus
	Outcome       constants.Outcome
	FailureKind   string // stable failure kind, empty unless Failed/skipped
	FailureReason string // human-readable, empty unless Failed/skipped
	Attempts      StageAttempts
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ErrorCount returns the number of error-severity findings.
func (p ProcessedDocument) ErrorCount() int {
	n := 0
	for _, f := range p.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity findings.
func (p ProcessedDocument) WarningCount() int {
	n := 0
	for _, f := range p.Findings {
		if f.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// IssueCount pairs a finding message with its occurrence count across a batch.
type IssueCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// BatchSummary is a derived view over a set of processed documents. It is
// recomputed on demand and never authoritative state.
type BatchSummary struct {
	Total           int          `json:"total"`
	Completed       int          `json:"completed"`
	Failed          int          `json:"failed"`
	Skipped         int          `json:"skipped"`
	Accepted        int          `json:"accepted"`
	Rejected        int          `json:"rejected"`
	NeedsReview     int          `json:"needs_review"`
	ErrorFindings   int          `json:"error_findings"`
	WarningFindings int          `json:"warning_findings"`
	AvgConfidence   float64      `json:"avg_confidence"`
	CommonIssues    []IssueCount `json:"common_issues,omitempty"`
}

// Summarize recomputes batch statistics from scratch.
func Summarize(docs []ProcessedDocument) BatchSummary {
	s := BatchSummary{Total: len(docs)}
	issues := make(map[string]int)
	confSum := 0.0
	confN := 0

	for _, d := range docs {
		switch d.Status {
		case constants.StatusComplete:
			s.Completed++
		case constants.StatusFailed:
			s.Failed++
		default:
			s.Skipped++
		}
		switch d.Outcome {
		case constants.OutcomeAccepted:
			s.Accepted++
		case constants.OutcomeRejected:
			s.Rejected++
		case constants.OutcomeNeedsReview:
			s.NeedsReview++
		}
		for _, f := range d.Findings {
			if f.Severity == SeverityError {
				s.ErrorFindings++
			} else {
				s.WarningFindings++
			}
			issues[f.Message]++
		}
		if d.Record != nil && d.Record.ModelConfidence > 0 {
			confSum += float64(d.Record.ModelConfidence)
			confN++
		}
	}
	if confN > 0 {
		s.AvgConfidence = confSum / float64(confN)
	}

	for msg, n := range issues {
		s.CommonIssues = append(s.CommonIssues, IssueCount{Message: msg, Count: n})
	}
	sort.Slice(s.CommonIssues, func(i, j int) bool {
		if s.CommonIssues[i].Count != s.CommonIssues[j].Count {
			return s.CommonIssues[i].Count > s.CommonIssues[j].Count
		}
		return s.CommonIssues[i].Message < s.CommonIssues[j].Message
	})
	if len(s.CommonIssues) > 5 {
		s.CommonIssues = s.CommonIssues[:5]
	}
	return s
}
