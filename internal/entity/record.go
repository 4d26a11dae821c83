package entity

import (
	"github.com/jmercado-dev/merchant-intake/constants"
)

// FieldKind distinguishes "model said nothing" from "model said something
// unparseable". Never a bare optional.
type FieldKind uint8

const (
	FieldMissing FieldKind = iota
	FieldPresent
	FieldMalformed
)

func (k FieldKind) String() string {
	switch k {
	case FieldPresent:
		return "present"
	case FieldMalformed:
		return "malformed"
	default:
		return "missing"
	}
}

// FieldValue is the tagged variant for one parsed business field.
type FieldValue struct {
	Kind       FieldKind
	Value      string  // set when Present
	Confidence float32 // [0,1]; zero when Missing
	Raw        string  // original fragment when Malformed
}

func Present(value string, confidence float32) FieldValue {
	return FieldValue{Kind: FieldPresent, Value: value, Confidence: confidence}
}

func Missing() FieldValue { return FieldValue{Kind: FieldMissing} }

func Malformed(raw string) FieldValue { return FieldValue{Kind: FieldMalformed, Raw: raw} }

// ParsedRecord maps every field of the document type's vocabulary to a
// FieldValue. Unextractable fields are present as Missing, never omitted.
type ParsedRecord struct {
	DocType         constants.DocumentType
	Fields          map[string]FieldValue
	ModelName       string
	ModelConfidence float32
	Warnings        []string
}

// EmptyRecord returns a record with every vocabulary field Missing. Used when
// the model response is malformed: the document degrades instead of failing.
func EmptyRecord(t constants.DocumentType) ParsedRecord {
	fields := make(map[string]FieldValue)
	for _, name := range constants.FieldsFor(t) {
		fields[name] = Missing()
	}
	return ParsedRecord{DocType: t, Fields: fields}
}

// Field returns the value for name, or Missing if the vocabulary and the
// record disagree.
func (r ParsedRecord) Field(name string) FieldValue {
	if v, ok := r.Fields[name]; ok {
		return v
	}
	return Missing()
}

// Severity of a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one rule's verdict on one field.
type Finding struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	RuleID   string   `json:"rule_id"`
}
