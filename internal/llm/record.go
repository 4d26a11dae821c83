package llm

import (
	"encoding/json"
	"fmt"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

type wireField struct {
	Value      *string `json:"value"`
	Confidence float32 `json:"confidence"`
	Raw        *string `json:"raw"` // unparseable original fragment, kept by sanitation
}

// DecodeRecord turns sanitized, schema-valid model JSON into a ParsedRecord.
// Every vocabulary field ends up Present, Missing, or Malformed; nothing is
// dropped.
func DecodeRecord(docType constants.DocumentType, modelName string, cleaned []byte) (entity.ParsedRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(cleaned, &raw); err != nil {
		return entity.ParsedRecord{}, fmt.Errorf("decode record: %w", err)
	}

	rec := entity.ParsedRecord{
		DocType:   docType,
		Fields:    make(map[string]entity.FieldValue),
		ModelName: modelName,
	}

	if mc, ok := raw["model_confidence"]; ok {
		_ = json.Unmarshal(mc, &rec.ModelConfidence)
	}

	for _, name := range constants.FieldsFor(docType) {
		frag, ok := raw[name]
		if !ok {
			rec.Fields[name] = entity.Missing()
			continue
		}
		var wf wireField
		if err := json.Unmarshal(frag, &wf); err != nil {
			rec.Fields[name] = entity.Malformed(string(frag))
			continue
		}
		if wf.Raw != nil {
			rec.Fields[name] = entity.Malformed(*wf.Raw)
			continue
		}
		if wf.Value == nil {
			rec.Fields[name] = entity.Missing()
			continue
		}
		rec.Fields[name] = entity.Present(*wf.Value, wf.Confidence)
	}
	return rec, nil
}
