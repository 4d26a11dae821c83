package ocr

import (
	"regexp"
	"strings"
)

var (
	reEIN     = regexp.MustCompile(`\b\d{2}-?\d{7}\b`)
	reRouting = regexp.MustCompile(`\b\d{9}\b`)
	reAmount  = regexp.MustCompile(`\$?\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	rePhone   = regexp.MustCompile(`\b\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)
)

// heuristicConfidence scores decoded text by the presence of artifacts a
// merchant-onboarding document is expected to carry (tax IDs, nine-digit
// routing numbers, dollar amounts, phone numbers) plus text density.
func heuristicConfidence(txt string) float32 {
	t := strings.ToLower(txt)
	score := float32(0.2) // base
	if reEIN.MatchString(t) {
		score += 0.2
	}
	if reRouting.MatchString(t) {
		score += 0.15
	}
	if reAmount.MatchString(t) {
		score += 0.15
	}
	if rePhone.MatchString(t) {
		score += 0.1
	}
	if len(txt) > 200 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
