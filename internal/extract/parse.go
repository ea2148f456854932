package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/coerce"
	"github.com/sells-group/dataset-cli/internal/model"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	bareArray   = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// LocateJSON finds the JSON payload in a free-form reply: a fenced code
// block first, then a bare array of objects, then the whole text.
func LocateJSON(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bareArray.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}

// ParseObjects decodes a JSON array and returns its object elements.
// Non-object elements are skipped. Anything other than an array is an error.
func ParseObjects(payload string) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "extract: decode model output")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, eris.Errorf("extract: model output is %T, want array", raw)
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

// BuildRecords projects raw objects onto the declared fields. Missing or N/A
// values get inferred defaults; the rest are coerced. Keys the caller did not
// ask for are dropped.
func BuildRecords(objects []map[string]any, fields []model.FieldSpec) []model.Record {
	records := make([]model.Record, 0, len(objects))
	for _, obj := range objects {
		rec := make(model.Record, len(fields))
		for _, f := range fields {
			raw, ok := lookup(obj, f.Name)
			rec[f.Name] = coerce.Field(raw, ok, f)
		}
		records = append(records, rec)
	}
	return records
}

// lookup prefers an exact key and falls back to a case-insensitive match.
func lookup(obj map[string]any, name string) (any, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// ParseResponse runs the full reply→records path. Unparsable replies yield
// no records and an error describing why.
func ParseResponse(text string, fields []model.FieldSpec) ([]model.Record, error) {
	objects, err := ParseObjects(LocateJSON(text))
	if err != nil {
		return nil, err
	}
	return BuildRecords(objects, fields), nil
}
