package llm

// BuildExtractionJSONSchema returns the JSON-Schema (draft 2020-12 subset) used
// to validate model output locally. Top-level arrays may be null or missing;
// they are coerced to empty sequences after validation.
func BuildExtractionJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":  []string{"array", "null"},
				"items": fieldSchema(),
			},
			"tables": map[string]any{
				"type":  []string{"array", "null"},
				"items": tableSchema(),
			},
		},
	}
}

// BuildResponseJSONSchema is the strict schema handed to providers that accept
// a JSON-Schema response constraint: every property required, no extras.
func BuildResponseJSONSchema() map[string]any {
	field := fieldSchema()
	field["additionalProperties"] = false

	row := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"values": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"values"},
	}
	table := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"headers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rows":    map[string]any{"type": "array", "items": row},
		},
		"required": []string{"name", "headers", "rows"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fields": map[string]any{"type": "array", "items": field},
			"tables": map[string]any{"type": "array", "items": table},
		},
		"required": []string{"fields", "tables"},
	}
}

func fieldSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{"type": "string"},
			"value": map[string]any{"type": []string{"string", "number"}},
		},
		"required": []string{"label", "value"},
	}
}

func tableSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"headers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"values": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"values"},
				},
			},
		},
		"required": []string{"headers", "rows"},
	}
}
