package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmercado-dev/merchant-intake/constants"
)

func TestNormalizeRawRecordStripsFencesAndSynonyms(t *testing.T) {
	raw := []byte("```json\n" + `{
		"business_name": {"value": "Acme LLC", "confidence": 0.9},
		"tax_id": {"value": "12-3456789", "confidence": 0.8},
		"totally_unknown": {"value": "x", "confidence": 1},
		"model_confidence": 0.85
	}` + "\n```")

	fields := constants.FieldsFor(constants.DocApplication)
	cleaned, adjusted, err := NormalizeRawRecord(raw, fields)
	require.NoError(t, err)
	assert.NotEmpty(t, adjusted)

	var m map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))

	// synonyms renamed to the canonical vocabulary
	assert.NotContains(t, m, "business_name")
	assert.NotContains(t, m, "tax_id")
	name := m[constants.FieldLegalBusinessName].(map[string]any)
	assert.Equal(t, "Acme LLC", name["value"])

	// unknown keys dropped, schema forbids them
	assert.NotContains(t, m, "totally_unknown")

	// every vocabulary field present, absent ones filled as null
	for _, f := range fields {
		assert.Contains(t, m, f)
	}
	zip := m[constants.FieldZip].(map[string]any)
	assert.Nil(t, zip["value"])
}

func TestNormalizeRawRecordCoercesScalars(t *testing.T) {
	raw := []byte(`{
		"legal_business_name": "Acme LLC",
		"ein": {"value": null, "confidence": 0.7},
		"requested_amount": {"value": 50000, "confidence": 0.9},
		"phone": {"value": "N/A", "confidence": 0.5}
	}`)
	fields := constants.FieldsFor(constants.DocApplication)
	cleaned, _, err := NormalizeRawRecord(raw, fields)
	require.NoError(t, err)

	var m map[string]map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))

	// bare scalar wrapped, with no confidence signal
	assert.Equal(t, "Acme LLC", m["legal_business_name"]["value"])
	assert.Equal(t, 0.0, m["legal_business_name"]["confidence"])

	// null value forces zero confidence
	assert.Nil(t, m["ein"]["value"])
	assert.Equal(t, 0.0, m["ein"]["confidence"])

	// numbers become strings
	assert.Equal(t, "50000", m["requested_amount"]["value"])

	// null-ish strings become null
	assert.Nil(t, m["phone"]["value"])
}

func TestNormalizeRawRecordRejectsNonJSON(t *testing.T) {
	_, _, err := NormalizeRawRecord([]byte("I could not read the document, sorry!"), constants.FieldsFor(constants.DocW9))
	require.Error(t, err)
}

func TestSanitizedOutputPassesSchema(t *testing.T) {
	raw := []byte(`{
		"legal_business_name": "Acme LLC",
		"merchant_name": "dup",
		"ein": 123456789,
		"model_confidence": "0.9"
	}`)
	fields := constants.FieldsFor(constants.DocApplication)
	cleaned, _, err := NormalizeRawRecord(raw, fields)
	require.NoError(t, err)

	schema := BuildRecordJSONSchema(fields)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, cleaned))
}

func TestDecodeRecordStates(t *testing.T) {
	fields := constants.FieldsFor(constants.DocVoidedCheck)
	cleaned, _, err := NormalizeRawRecord([]byte(`{
		"routing_number": {"value": "021000021", "confidence": 0.97},
		"account_number": {"value": null, "confidence": 0},
		"model_confidence": 0.8
	}`), fields)
	require.NoError(t, err)

	rec, err := DecodeRecord(constants.DocVoidedCheck, "llama3.1", cleaned)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", rec.ModelName)
	assert.InDelta(t, 0.8, float64(rec.ModelConfidence), 1e-6)

	routing := rec.Field(constants.FieldRoutingNumber)
	assert.Equal(t, "021000021", routing.Value)
	assert.InDelta(t, 0.97, float64(routing.Confidence), 1e-6)

	// null value -> Missing, never an empty Present
	account := rec.Field(constants.FieldAccountNumber)
	assert.Equal(t, "missing", account.Kind.String())

	// every vocabulary field is represented
	for _, f := range fields {
		_, ok := rec.Fields[f]
		assert.True(t, ok, "field %s absent from record", f)
	}
}

func TestSanitizeKeepsUnparseableFragmentsAsMalformed(t *testing.T) {
	raw := []byte(`{
		"routing_number": ["021000021", "111000025"],
		"account_number": {"value": {"number": "1234"}, "confidence": 0.8}
	}`)
	fields := constants.FieldsFor(constants.DocVoidedCheck)
	cleaned, adjusted, err := NormalizeRawRecord(raw, fields)
	require.NoError(t, err)
	assert.NotEmpty(t, adjusted)

	schema := BuildRecordJSONSchema(fields)
	require.NoError(t, ValidateJSONAgainstSchema(schema, cleaned))

	rec, err := DecodeRecord(constants.DocVoidedCheck, "llama3.1", cleaned)
	require.NoError(t, err)

	// "the model said something unparseable" stays distinguishable from
	// "the model said nothing"
	routing := rec.Field(constants.FieldRoutingNumber)
	assert.Equal(t, "malformed", routing.Kind.String())
	assert.Equal(t, `["021000021","111000025"]`, routing.Raw)

	account := rec.Field(constants.FieldAccountNumber)
	assert.Equal(t, "malformed", account.Kind.String())
	assert.Equal(t, `{"number":"1234"}`, account.Raw)

	bank := rec.Field(constants.FieldBankName)
	assert.Equal(t, "missing", bank.Kind.String())
}

func TestDecodeRecordMalformedFragment(t *testing.T) {
	// hand-built JSON that skips sanitation: a field holding an array
	cleaned := []byte(`{"routing_number": ["021000021"], "account_number": {"value": "1234", "confidence": 0.9}}`)
	rec, err := DecodeRecord(constants.DocVoidedCheck, "llama3.1", cleaned)
	require.NoError(t, err)

	routing := rec.Field(constants.FieldRoutingNumber)
	assert.Equal(t, "malformed", routing.Kind.String())
	assert.Equal(t, `["021000021"]`, routing.Raw)
}

func TestSchemaRejectsUnknownKeys(t *testing.T) {
	fields := constants.FieldsFor(constants.DocW9)
	schema := BuildRecordJSONSchema(fields)

	unknown := []byte(`{"legal_business_name": {"value": "A", "confidence": 0.5}, "extra": 1}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, unknown))

	outOfRange, _, err := NormalizeRawRecord([]byte(`{"legal_business_name": {"value": "A", "confidence": 0.5}}`), fields)
	require.NoError(t, err)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, outOfRange))
}
