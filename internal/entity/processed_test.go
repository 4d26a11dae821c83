package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmercado-dev/merchant-intake/constants"
)

func TestSummarize(t *testing.T) {
	rec := EmptyRecord(constants.DocApplication)
	rec.ModelConfidence = 0.8

	docs := []ProcessedDocument{
		{
			Document: NewDocument("/in/a_application.pdf"),
			Record:   &rec,
			Status:   constants.StatusComplete,
			Outcome:  constants.OutcomeAccepted,
		},
		{
			Document: NewDocument("/in/b_application.pdf"),
			Record:   &rec,
			Status:   constants.StatusComplete,
			Outcome:  constants.OutcomeRejected,
			Findings: []Finding{
				{Field: "ein", Severity: SeverityError, Message: "missing required field ein", RuleID: "required_field"},
				{Field: "zip", Severity: SeverityWarning, Message: "incomplete address", RuleID: "address_complete"},
			},
		},
		{
			Document:    NewDocument("/in/c.pdf"),
			Status:      constants.StatusFailed,
			FailureKind: "CORRUPT_FILE",
		},
		{
			Document: NewDocument("/in/d_application.pdf"),
			Status:   constants.StatusPending,
		},
		{
			Document: NewDocument("/in/e_application.pdf"),
			Record:   &rec,
			Status:   constants.StatusComplete,
			Outcome:  constants.OutcomeRejected,
			Findings: []Finding{
				{Field: "ein", Severity: SeverityError, Message: "missing required field ein", RuleID: "required_field"},
			},
		},
	}

	s := Summarize(docs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Accepted)
	assert.Equal(t, 2, s.Rejected)
	assert.Equal(t, 0, s.NeedsReview)
	assert.Equal(t, 2, s.ErrorFindings)
	assert.Equal(t, 1, s.WarningFindings)
	assert.InDelta(t, 0.8, s.AvgConfidence, 1e-6)

	// the repeated issue sorts first
	require.NotEmpty(t, s.CommonIssues)
	assert.Equal(t, "missing required field ein", s.CommonIssues[0].Message)
	assert.Equal(t, 2, s.CommonIssues[0].Count)
}

func TestFieldValueConstructors(t *testing.T) {
	p := Present("Acme", 0.9)
	assert.Equal(t, FieldPresent, p.Kind)
	assert.Equal(t, "present", p.Kind.String())

	m := Missing()
	assert.Equal(t, FieldMissing, m.Kind)
	assert.Zero(t, m.Confidence)

	mal := Malformed(`[1]`)
	assert.Equal(t, FieldMalformed, mal.Kind)
	assert.Equal(t, `[1]`, mal.Raw)
}

func TestEmptyRecordCoversVocabulary(t *testing.T) {
	for _, dt := range constants.DocumentTypes() {
		rec := EmptyRecord(dt)
		for _, f := range constants.FieldsFor(dt) {
			v, ok := rec.Fields[f]
			require.True(t, ok, "%s missing %s", dt, f)
			assert.Equal(t, FieldMissing, v.Kind)
		}
	}
}
