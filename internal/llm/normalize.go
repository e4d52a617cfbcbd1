package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

var (
	extractionValidatorOnce sync.Once
	extractionValidator     *SchemaValidator
	extractionValidatorErr  error
)

func defaultValidator() (*SchemaValidator, error) {
	extractionValidatorOnce.Do(func() {
		extractionValidator, extractionValidatorErr = NewSchemaValidator(BuildExtractionJSONSchema())
	})
	return extractionValidator, extractionValidatorErr
}

// ParseExtraction turns model output into ExtractedData. The document is
// validated strictly first; on failure a lenient sanitize pass (null/number
// coercion) is applied and validated again. Nil sequences never escape.
func ParseExtraction(content []byte, logger *slog.Logger) (entity.ExtractedData, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := defaultValidator()
	if err != nil {
		return entity.ExtractedData{}, nil, err
	}

	doc := StripCodeFence(content)
	if len(doc) == 0 {
		return entity.ExtractedData{}, nil, fmt.Errorf("empty model response")
	}

	if vErr := v.Validate(doc); vErr != nil {
		cleaned, changed, sErr := SanitizeExtraction(doc)
		if sErr != nil {
			return entity.ExtractedData{}, doc, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if err := v.Validate(cleaned); err != nil {
			return entity.ExtractedData{}, doc, fmt.Errorf("schema validation failed: %w", vErr)
		}
		logger.Warn("llm.extract.lenient_sanitize_applied", "changed", changed)
		doc = cleaned
	}

	var out entity.ExtractedData
	if err := json.Unmarshal(doc, &out); err != nil {
		return entity.ExtractedData{}, doc, fmt.Errorf("unmarshal extraction: %w", err)
	}
	return out.Normalize(), doc, nil
}

// StripCodeFence removes a surrounding markdown ``` fence some models emit
// even in JSON mode.
func StripCodeFence(b []byte) []byte {
	s := bytes.TrimSpace(b)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = s[3:]
	if nl := bytes.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = bytes.TrimPrefix(s, []byte("json"))
	}
	s = bytes.TrimSpace(s)
	s = bytes.TrimSuffix(s, []byte("```"))
	return bytes.TrimSpace(s)
}

// SanitizeExtraction coerces the loose shapes models produce into the schema:
// null arrays become empty, numbers and nulls inside headers/values become
// strings, unknown top-level keys are dropped. It returns the list of touched paths.
func SanitizeExtraction(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	for k := range m {
		if k != "fields" && k != "tables" {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	fields, ok := m["fields"].([]any)
	if !ok {
		if m["fields"] != nil {
			changed = append(changed, "fields(type)")
		}
		fields = []any{}
	}
	cleanFields := make([]any, 0, len(fields))
	for i, f := range fields {
		fm, ok := f.(map[string]any)
		if !ok {
			changed = append(changed, fmt.Sprintf("fields[%d](type)", i))
			continue
		}
		if _, ok := fm["label"].(string); !ok {
			fm["label"] = toText(fm["label"])
			changed = append(changed, fmt.Sprintf("fields[%d].label", i))
		}
		switch fm["value"].(type) {
		case string, json.Number:
		default:
			fm["value"] = toText(fm["value"])
			changed = append(changed, fmt.Sprintf("fields[%d].value", i))
		}
		cleanFields = append(cleanFields, fm)
	}
	m["fields"] = cleanFields

	tables, ok := m["tables"].([]any)
	if !ok {
		if m["tables"] != nil {
			changed = append(changed, "tables(type)")
		}
		tables = []any{}
	}
	cleanTables := make([]any, 0, len(tables))
	for i, t := range tables {
		tm, ok := t.(map[string]any)
		if !ok {
			changed = append(changed, fmt.Sprintf("tables[%d](type)", i))
			continue
		}
		if _, ok := tm["name"].(string); !ok {
			tm["name"] = toText(tm["name"])
			changed = append(changed, fmt.Sprintf("tables[%d].name", i))
		}
		headers, coerced := toTextSlice(tm["headers"])
		tm["headers"] = headers
		if coerced {
			changed = append(changed, fmt.Sprintf("tables[%d].headers", i))
		}
		rows, ok := tm["rows"].([]any)
		if !ok && tm["rows"] != nil {
			changed = append(changed, fmt.Sprintf("tables[%d].rows(type)", i))
		}
		cleanRows := make([]any, 0, len(rows))
		for j, r := range rows {
			var values []string
			switch rv := r.(type) {
			case map[string]any:
				values, coerced = toTextSlice(rv["values"])
			case []any:
				// bare array row
				values, _ = toTextSlice(rv)
				coerced = true
			default:
				changed = append(changed, fmt.Sprintf("tables[%d].rows[%d](type)", i, j))
				continue
			}
			if coerced {
				changed = append(changed, fmt.Sprintf("tables[%d].rows[%d]", i, j))
			}
			cleanRows = append(cleanRows, map[string]any{"values": values})
		}
		tm["rows"] = cleanRows
		cleanTables = append(cleanTables, tm)
	}
	m["tables"] = cleanTables

	b, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, changed, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// toTextSlice reports whether anything other than a string array was coerced.
func toTextSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return []string{}, v != nil
	}
	out := make([]string, len(arr))
	coerced := false
	for i, x := range arr {
		if _, isText := x.(string); !isText {
			coerced = true
		}
		out[i] = toText(x)
	}
	return out, coerced
}
