package export

import (
	"encoding/json"
	"time"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// ExportVersion is bumped whenever the JSON artifact shape changes.
const ExportVersion = "1"

// FieldExport is one field in the JSON artifact. Value and Confidence are
// pointers so a missing field serializes as explicit nulls instead of zero
// values that look like data.
type FieldExport struct {
	Name       string   `json:"name"`
	State      string   `json:"state"` // "present" | "missing" | "malformed"
	Value      *string  `json:"value"`
	Confidence *float32 `json:"confidence"`
	Raw        string   `json:"raw,omitempty"` // original fragment when malformed
}

// DocumentExport is one document's full result in the JSON artifact. Field
// order follows the document type's canonical vocabulary order so repeated
// runs over the same inputs diff cleanly.
type DocumentExport struct {
	DocumentID      string               `json:"document_id"`
	SourceFile      string               `json:"source_file"`
	DocumentType    string               `json:"document_type"`
	Status          string               `json:"status"`
	Outcome         string               `json:"outcome,omitempty"`
	FailureKind     string               `json:"failure_kind,omitempty"`
	FailureReason   string               `json:"failure_reason,omitempty"`
	Attempts        entity.StageAttempts `json:"attempts"`
	ExtractMethod   string               `json:"extract_method,omitempty"`
	ExtractConf     float32              `json:"extract_confidence,omitempty"`
	ModelName       string               `json:"model_name,omitempty"`
	ModelConfidence float32              `json:"model_confidence,omitempty"`
	Fields          []FieldExport        `json:"fields,omitempty"`
	Findings        []entity.Finding     `json:"findings,omitempty"`
	Warnings        []string             `json:"warnings,omitempty"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
}

// BatchExport is the top-level JSON artifact for one run.
type BatchExport struct {
	Version     string              `json:"version"`
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     entity.BatchSummary `json:"summary"`
	Documents   []DocumentExport    `json:"documents"`
}

// BuildDocumentExport flattens one processed document into its export shape.
func BuildDocumentExport(d entity.ProcessedDocument) DocumentExport {
	out := DocumentExport{
		DocumentID:    d.Document.ID.String(),
		SourceFile:    d.Document.FileName(),
		DocumentType:  string(d.Document.Type),
		Status:        string(d.Status),
		Outcome:       string(d.Outcome),
		FailureKind:   d.FailureKind,
		FailureReason: d.FailureReason,
		Attempts:      d.Attempts,
		Findings:      d.Findings,
		StartedAt:     d.StartedAt,
		FinishedAt:    d.FinishedAt,
	}
	if d.Extraction != nil {
		out.ExtractMethod = d.Extraction.Method
		out.ExtractConf = d.Extraction.Confidence
		out.Warnings = append(out.Warnings, d.Extraction.Warnings...)
	}
	if d.Record != nil {
		out.ModelName = d.Record.ModelName
		out.ModelConfidence = d.Record.ModelConfidence
		out.Warnings = append(out.Warnings, d.Record.Warnings...)
		out.Fields = exportFields(*d.Record)
	}
	return out
}

func exportFields(rec entity.ParsedRecord) []FieldExport {
	names := constants.FieldsFor(rec.DocType)
	out := make([]FieldExport, 0, len(names))
	for _, name := range names {
		fv := rec.Field(name)
		fe := FieldExport{Name: name, State: fv.Kind.String()}
		switch fv.Kind {
		case entity.FieldPresent:
			v, c := fv.Value, fv.Confidence
			fe.Value, fe.Confidence = &v, &c
		case entity.FieldMalformed:
			fe.Raw = fv.Raw
		}
		out = append(out, fe)
	}
	return out
}

// MarshalBatch renders the full JSON artifact. Output is deterministic for a
// given result set and timestamp.
func MarshalBatch(docs []entity.ProcessedDocument, generatedAt time.Time) ([]byte, error) {
	exp := BatchExport{
		Version:     ExportVersion,
		GeneratedAt: generatedAt.UTC(),
		Summary:     entity.Summarize(docs),
		Documents:   make([]DocumentExport, 0, len(docs)),
	}
	for _, d := range docs {
		exp.Documents = append(exp.Documents, BuildDocumentExport(d))
	}
	return json.MarshalIndent(exp, "", "  ")
}
