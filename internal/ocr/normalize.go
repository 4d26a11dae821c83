package ocr

import (
	"regexp"
	"strings"
)

var (
	// stray box-drawing and form-grid noise tesseract emits on ruled forms
	reBoxNoise = regexp.MustCompile(`[|_]{3,}`)
	reBlankRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans OCR output: strips grid noise, collapses blank-line runs,
// trims trailing whitespace per line.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
