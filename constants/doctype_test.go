package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want DocumentType
	}{
		{"acme_mca_application.pdf", DocApplication},
		{"ACME-W9-2026.pdf", DocW9},
		{"form_w-9_signed.pdf", DocW9},
		{"voided_check.png", DocVoidedCheck},
		{"chase_statement_jan.pdf", DocBankStatement},
		{"scan_0001.pdf", DocUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFromFilename(tc.name))
		})
	}
}

func TestRefineFromText(t *testing.T) {
	// text only upgrades an unknown guess
	assert.Equal(t, DocW9,
		RefineFromText(DocUnknown, "Form W-9\nRequest for Taxpayer Identification Number"))
	assert.Equal(t, DocBankStatement,
		RefineFromText(DocUnknown, "Statement Period: 01/01 - 01/31\nEnding Balance: $12,000"))
	assert.Equal(t, DocUnknown,
		RefineFromText(DocUnknown, "completely unrelated text"))

	// a filename-derived type is never overridden
	assert.Equal(t, DocApplication,
		RefineFromText(DocApplication, "Form W-9"))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusExtracting))
	assert.True(t, StatusExtracting.CanTransition(StatusParsing))
	assert.True(t, StatusParsing.CanTransition(StatusValidating))
	assert.True(t, StatusValidating.CanTransition(StatusComplete))

	// Failed is reachable from any non-terminal state
	assert.True(t, StatusPending.CanTransition(StatusFailed))
	assert.True(t, StatusValidating.CanTransition(StatusFailed))

	// no skipping, no leaving terminal states
	assert.False(t, StatusPending.CanTransition(StatusParsing))
	assert.False(t, StatusComplete.CanTransition(StatusFailed))
	assert.False(t, StatusFailed.CanTransition(StatusExtracting))
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusValidating.Terminal())
}

func TestVocabularyFallbacks(t *testing.T) {
	assert.Equal(t, FieldsFor(DocApplication), FieldsFor(DocUnknown),
		"unknown documents parse with the widest field set")
	assert.Empty(t, RequiredFor(DocUnknown),
		"unknown documents require nothing and route to review instead")
}
