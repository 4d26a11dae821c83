package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/jmercado-dev/merchant-intake/constants"
)

// maxPromptText caps the OCR text shipped to the backend.
const maxPromptText = 6000

var docTypeLabels = map[constants.DocumentType]string{
	constants.DocApplication:   "a merchant funding application",
	constants.DocW9:            "an IRS Form W-9",
	constants.DocVoidedCheck:   "a voided check",
	constants.DocBankStatement: "a bank statement",
	constants.DocUnknown:       "a merchant-onboarding document of unknown kind",
}

// BuildSystemPrompt states the extraction contract: one JSON object, every
// field present, null + zero confidence when a field cannot be read.
func BuildSystemPrompt(docType constants.DocumentType, fields []string) string {
	parts := []string{
		"You are a merchant-onboarding document parser. The input is OCR text from " + docTypeLabels[docType] + ".",
		"Return ONLY a JSON object matching the provided JSON Schema. No prose, no markdown.",
		"Every listed field must appear as {\"value\": <string or null>, \"confidence\": <0..1>}.",
		"If a field is not in the document or is unreadable, set value to null and confidence to 0. Never guess.",
		"Fields: " + strings.Join(fields, ", ") + ".",
		"EIN must keep the NN-NNNNNNN form if visible. Routing numbers are exactly 9 digits.",
		"States are 2-letter USPS codes. Amounts are plain decimal strings without currency symbols.",
		"Include 'model_confidence' for your overall certainty.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packs the filename hint, the schema, and the (truncated)
// OCR text.
func BuildUserPrompt(req ParseRequest, schema map[string]any) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(req.FilenameHint)
	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(mustJSON(schema))
	b.WriteString("\n\nOCR text:\n")
	b.WriteString(truncateRunes(req.Text, maxPromptText))
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
