package analysis

import "github.com/driveon/idverify/internal/core/domain"

// OutputSchema is the strict schema the primary pass must conform to. It
// covers every extracted field and assessment; validity and flag ordering
// are derived later by the interpreter, not reported by the model.
func OutputSchema() domain.OutputSchema {
	qualityRating := map[string]any{
		"type": "string",
		"enum": []string{"good", "fair", "poor"},
	}

	extractedField := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":      map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"raw_text":   map[string]any{"type": "string"},
		},
		"required":             []string{"value", "confidence", "raw_text"},
		"additionalProperties": false,
	}

	stringList := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}

	return domain.OutputSchema{
		"type": "object",
		"properties": map[string]any{
			"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"fields": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"full_name":            extractedField,
					"date_of_birth":        extractedField,
					"expiration_date":      extractedField,
					"license_number":       extractedField,
					"issuing_jurisdiction": extractedField,
					"address":              extractedField,
				},
				"required": []string{
					"full_name", "date_of_birth", "expiration_date",
					"license_number", "issuing_jurisdiction", "address",
				},
				"additionalProperties": false,
			},
			"security_features": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"detected":     stringList,
					"not_detected": stringList,
					"obscured":     stringList,
					"assessment": map[string]any{
						"type": "string",
						"enum": []string{"PASS", "REVIEW", "FAIL"},
					},
				},
				"required":             []string{"detected", "not_detected", "obscured", "assessment"},
				"additionalProperties": false,
			},
			"photo_quality": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"lighting": qualityRating,
					"angle":    qualityRating,
					"focus":    qualityRating,
					"glare":    qualityRating,
					"cropping": qualityRating,
				},
				"required":             []string{"lighting", "angle", "focus", "glare", "cropping"},
				"additionalProperties": false,
			},
			"jurisdiction": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"jurisdiction":      map[string]any{"type": "string"},
					"format_consistent": map[string]any{"type": "boolean"},
					"notes":             map[string]any{"type": "string"},
				},
				"required":             []string{"jurisdiction", "format_consistent"},
				"additionalProperties": false,
			},
			"is_expired":          map[string]any{"type": "boolean"},
			"is_authentic":        map[string]any{"type": "boolean"},
			"critical_flags":      stringList,
			"informational_flags": stringList,
			"summary":             map[string]any{"type": "string"},
		},
		"required": []string{
			"confidence", "fields", "security_features", "photo_quality",
			"jurisdiction", "is_expired", "is_authentic",
			"critical_flags", "informational_flags",
		},
		"additionalProperties": false,
	}
}
