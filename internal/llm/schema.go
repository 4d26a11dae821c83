package llm

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is sent to the backend as the structured-output constraint
// and used locally to validate the response. Every vocabulary field must be
// present as {"value": string|null, "confidence": 0..1}; null value + zero
// confidence is how the model reports "not found".
func BuildRecordJSONSchema(fields []string) map[string]any {
	props := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		props[f] = fieldProp()
	}
	props["model_confidence"] = map[string]any{
		"type":    "number",
		"minimum": 0.0,
		"maximum": 1.0,
	}

	required := make([]string, 0, len(fields))
	required = append(required, fields...)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func fieldProp() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"value": map[string]any{
				"type": []string{"string", "null"},
			},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0.0,
				"maximum": 1.0,
			},
			// set by sanitation when the model's value could not be
			// coerced; marks the field malformed rather than missing
			"raw": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"value", "confidence"},
	}
}
