package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jmercado-dev/merchant-intake/constants"
)

func TestUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	// a multi-byte rune straddles the byte cap
	text := strings.Repeat("a", maxPromptText-1) + "é and overflow"
	req := ParseRequest{
		Text:         text,
		DocType:      constants.DocApplication,
		FilenameHint: "acme_application.pdf",
	}
	schema := BuildRecordJSONSchema(constants.FieldsFor(req.DocType))

	prompt := BuildUserPrompt(req, schema)
	assert.True(t, utf8.ValidString(prompt))
	assert.NotContains(t, prompt, "overflow")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", truncateRunes("ab", 10))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	// never splits the 2-byte é
	assert.Equal(t, "a", truncateRunes("aé", 2))
	assert.Equal(t, "aé", truncateRunes("aéb", 3))
}
