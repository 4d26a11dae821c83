package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

func completedDoc(name string) entity.ProcessedDocument {
	rec := entity.EmptyRecord(constants.DocApplication)
	rec.ModelName = "llama3.1"
	rec.ModelConfidence = 0.88
	rec.Fields[constants.FieldLegalBusinessName] = entity.Present("Acme LLC", 0.95)
	rec.Fields[constants.FieldEIN] = entity.Present("12-3456789", 0.92)
	rec.Fields[constants.FieldPhone] = entity.Malformed(`["555"]`)

	doc := entity.NewDocument("/intake/" + name)
	return entity.ProcessedDocument{
		Document:   doc,
		Extraction: &entity.ExtractionResult{Pages: []string{"text"}, Method: "pdf-text", Confidence: 0.9},
		Record:     &rec,
		Status:     constants.StatusComplete,
		Outcome:    constants.OutcomeAccepted,
		Attempts:   entity.StageAttempts{Extract: 1, Parse: 1},
		StartedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC),
	}
}

func TestMarshalBatchExplicitNulls(t *testing.T) {
	doc := completedDoc("acme_application.pdf")
	blob, err := MarshalBatch([]entity.ProcessedDocument{doc}, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(blob, &decoded))
	assert.Equal(t, ExportVersion, decoded["version"])

	docs := decoded["documents"].([]any)
	require.Len(t, docs, 1)
	fields := docs[0].(map[string]any)["fields"].([]any)
	require.Len(t, fields, len(constants.FieldsFor(constants.DocApplication)))

	byName := map[string]map[string]any{}
	for _, f := range fields {
		fm := f.(map[string]any)
		byName[fm["name"].(string)] = fm
	}

	present := byName[constants.FieldLegalBusinessName]
	assert.Equal(t, "present", present["state"])
	assert.Equal(t, "Acme LLC", present["value"])

	// Missing fields serialize with explicit null value and confidence.
	missing := byName[constants.FieldCity]
	assert.Equal(t, "missing", missing["state"])
	v, ok := missing["value"]
	assert.True(t, ok, "value key must exist even when missing")
	assert.Nil(t, v)

	malformed := byName[constants.FieldPhone]
	assert.Equal(t, "malformed", malformed["state"])
	assert.Equal(t, `["555"]`, malformed["raw"])
}

func TestMarshalBatchIsDeterministic(t *testing.T) {
	docs := []entity.ProcessedDocument{completedDoc("acme_application.pdf")}
	at := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)

	first, err := MarshalBatch(docs, at)
	require.NoError(t, err)
	second, err := MarshalBatch(docs, at)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Field order follows the canonical vocabulary.
	var decoded BatchExport
	require.NoError(t, json.Unmarshal(first, &decoded))
	names := make([]string, 0, len(decoded.Documents[0].Fields))
	for _, f := range decoded.Documents[0].Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, constants.FieldsFor(constants.DocApplication), names)
}

func TestWriteCSV(t *testing.T) {
	check := entity.ProcessedDocument{
		Document: entity.NewDocument("/intake/voided_check.png"),
		Record: func() *entity.ParsedRecord {
			rec := entity.EmptyRecord(constants.DocVoidedCheck)
			rec.ModelConfidence = 0.9
			rec.Fields[constants.FieldRoutingNumber] = entity.Present("021000021", 0.95)
			rec.Fields[constants.FieldAccountNumber] = entity.Present("9876-54321", 0.95)
			return &rec
		}(),
		Status:     constants.StatusComplete,
		Outcome:    constants.OutcomeAccepted,
		FinishedAt: time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC),
	}
	failed := entity.ProcessedDocument{
		Document:      entity.NewDocument("/intake/broken.pdf"),
		Status:        constants.StatusFailed,
		FailureKind:   "CORRUPT_FILE",
		FailureReason: "no text recoverable",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []entity.ProcessedDocument{check, failed}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "voided_check.png", first[1])
	assert.Equal(t, "021000021", first[9])
	assert.Equal(t, "****4321", first[10], "account numbers are masked in the summary")

	second := rows[2]
	assert.Equal(t, "FAILED", second[3])
	assert.Equal(t, "", second[4], "failed docs have no outcome")
	assert.Equal(t, "", second[12], "zero finish time renders empty")
}

func TestBuildXLSX(t *testing.T) {
	doc := completedDoc("acme_application.pdf")
	doc.Findings = []entity.Finding{
		{Field: constants.FieldEIN, Severity: entity.SeverityWarning, Message: "check me", RuleID: "confidence_uncertain"},
	}
	blob, err := BuildXLSX([]entity.ProcessedDocument{doc})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	// only our sheets ship; excelize's default Sheet1 is gone
	assert.Equal(t, []string{"Documents", "Findings"}, f.GetSheetList())

	name, err := f.GetCellValue("Documents", "A2")
	require.NoError(t, err)
	assert.Equal(t, "acme_application.pdf", name)

	field, err := f.GetCellValue("Findings", "B2")
	require.NoError(t, err)
	assert.Equal(t, constants.FieldEIN, field)
}
