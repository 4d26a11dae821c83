package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// field-name synonyms models drift into, renamed to the canonical vocabulary
var fieldSynonyms = map[string]string{
	"business_name":      "legal_business_name",
	"merchant_name":      "legal_business_name",
	"company_name":       "legal_business_name",
	"tax_id":             "ein",
	"ein_or_ssn":         "ein",
	"federal_tax_id":     "ein",
	"dba":                "dba_name",
	"phone_number":       "phone",
	"email_address":      "email",
	"address":            "street",
	"street_address":     "street",
	"zip_code":           "zip",
	"postal_code":        "zip",
	"routing":            "routing_number",
	"aba_number":         "routing_number",
	"account":            "account_number",
	"confidence":         "model_confidence",
	"overall_confidence": "model_confidence",
}

// NormalizeRawRecord makes a best effort to coerce model output into the
// strict schema shape before validation:
//   - strips markdown code fences
//   - renames known field synonyms
//   - wraps bare scalar values into {"value": ..., "confidence": 0}
//   - coerces numeric values to strings, null-ish strings to null
//   - keeps unparseable values (arrays, nested objects) as a raw fragment
//     so the decoder can tag the field malformed instead of missing
//   - drops unknown keys (additionalProperties is false)
//
// Returns the cleaned JSON and the list of adjustments made, for logging.
func NormalizeRawRecord(raw []byte, fields []string) ([]byte, []string, error) {
	txt := stripFences(string(raw))

	var m map[string]any
	if err := json.Unmarshal([]byte(txt), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}

	var adjusted []string

	// rename synonyms, never clobbering an existing canonical key
	for from, to := range fieldSynonyms {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			adjusted = append(adjusted, from+"->"+to)
		}
	}

	for k, v := range m {
		if k == "model_confidence" {
			if f, ok := toFloat(v); ok {
				m[k] = clamp01(f)
			} else {
				delete(m, k)
				adjusted = append(adjusted, k+"(dropped)")
			}
			continue
		}
		if _, ok := known[k]; !ok {
			delete(m, k)
			adjusted = append(adjusted, k+"(unknown)")
			continue
		}
		cleaned, note := normalizeField(v)
		m[k] = cleaned
		if note != "" {
			adjusted = append(adjusted, k+"("+note+")")
		}
	}

	// every vocabulary field must be present; fill the gaps as null
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			m[f] = map[string]any{"value": nil, "confidence": 0.0}
			adjusted = append(adjusted, f+"(filled)")
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, adjusted, nil
}

// normalizeField coerces one field into {"value": string|null, "confidence": n}.
func normalizeField(v any) (map[string]any, string) {
	switch t := v.(type) {
	case map[string]any:
		out := map[string]any{"value": nil, "confidence": 0.0}
		note := ""
		if c, ok := toFloat(t["confidence"]); ok {
			out["confidence"] = clamp01(c)
		}
		switch val := t["value"].(type) {
		case nil:
			out["confidence"] = 0.0
		case string:
			s := strings.TrimSpace(val)
			if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "unknown") {
				out["confidence"] = 0.0
				note = "null-ish"
			} else {
				out["value"] = s
			}
		case float64:
			out["value"] = trimFloat(val)
			note = "number->string"
		case bool:
			out["value"] = fmt.Sprintf("%t", val)
			note = "bool->string"
		default:
			if raw, err := json.Marshal(val); err == nil {
				out["raw"] = string(raw)
			}
			note = "value-type"
		}
		return out, note
	case nil:
		return map[string]any{"value": nil, "confidence": 0.0}, "null"
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return map[string]any{"value": nil, "confidence": 0.0}, "bare-null"
		}
		// bare scalar: keep the value but admit we have no confidence signal
		return map[string]any{"value": s, "confidence": 0.0}, "bare-string"
	case float64:
		return map[string]any{"value": trimFloat(t), "confidence": 0.0}, "bare-number"
	default:
		out := map[string]any{"value": nil, "confidence": 0.0}
		if raw, err := json.Marshal(t); err == nil {
			out["raw"] = string(raw)
		}
		return out, "type"
	}
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
