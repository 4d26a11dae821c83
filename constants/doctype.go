package constants

import "strings"

// DocumentType classifies a merchant-onboarding document.
type DocumentType string

const (
	DocApplication   DocumentType = "application"
	DocW9            DocumentType = "w9"
	DocVoidedCheck   DocumentType = "voided_check"
	DocBankStatement DocumentType = "bank_statement"
	DocUnknown       DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	DocApplication,
	DocW9,
	DocVoidedCheck,
	DocBankStatement,
	DocUnknown,
}

func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

// filename keyword -> type. Checked in order so more specific tokens win.
var filenameMarkers = []struct {
	token string
	t     DocumentType
}{
	{"w-9", DocW9},
	{"w9", DocW9},
	{"voided", DocVoidedCheck},
	{"void", DocVoidedCheck},
	{"check", DocVoidedCheck},
	{"statement", DocBankStatement},
	{"bank", DocBankStatement},
	{"application", DocApplication},
	{"app", DocApplication},
	{"mca", DocApplication},
}

// DetectFromFilename guesses the document type from the file name alone.
// Returns DocUnknown when nothing matches; the pipeline refines the guess
// from extracted text before parsing.
func DetectFromFilename(name string) DocumentType {
	n := strings.ToLower(name)
	for _, m := range filenameMarkers {
		if strings.Contains(n, m.token) {
			return m.t
		}
	}
	return DocUnknown
}

// text marker -> type. Markers come from the forms themselves ("Form W-9",
// the VOID stamp, statement-period lines).
var textMarkers = []struct {
	token string
	t     DocumentType
}{
	{"form w-9", DocW9},
	{"request for taxpayer identification", DocW9},
	{"void", DocVoidedCheck},
	{"statement period", DocBankStatement},
	{"beginning balance", DocBankStatement},
	{"ending balance", DocBankStatement},
	{"merchant application", DocApplication},
	{"funding application", DocApplication},
}

// RefineFromText upgrades an unknown/guessed type using extracted text.
// A filename-derived type is kept unless the text clearly contradicts it.
func RefineFromText(current DocumentType, text string) DocumentType {
	if current != DocUnknown {
		return current
	}
	t := strings.ToLower(text)
	for _, m := range textMarkers {
		if strings.Contains(t, m.token) {
			return m.t
		}
	}
	return current
}
