package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultFields is used when a request declares no fields at all.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{Name: "Name", Type: TypeString, Description: "Name of the item"},
		{Name: "Description", Type: TypeString, Description: "Short description of the item"},
		{Name: "Price", Type: TypeNumber, Description: "Price of the item"},
	}
}

// ExtractionRequest is one validated extraction job.
type ExtractionRequest struct {
	Query             string      `json:"query"`
	Fields            []FieldSpec `json:"fields"`
	TargetRecordCount int         `json:"target_record_count"`
}

// NewExtractionRequest validates caller input and fixes per-category quotas.
// Fields keep their declaration order. Quotas are computed here once as
// max(1, target/len(categories)) and not touched again.
func NewExtractionRequest(query string, fields []FieldSpec, target int) (*ExtractionRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.Wrap(ErrInput, "model: query is required")
	}
	if target <= 0 {
		return nil, eris.Wrapf(ErrInput, "model: target record count must be positive, got %d", target)
	}
	if len(fields) == 0 {
		fields = DefaultFields()
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]FieldSpec, 0, len(fields))
	for _, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[f.Name]; dup {
			return nil, eris.Wrapf(ErrInput, "model: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		f.Categories = append([]string(nil), f.Categories...)
		f.MaxPerCategory = 0
		if f.Type == TypeCategorical {
			f.MaxPerCategory = max(1, target/len(f.Categories))
		}
		out = append(out, f)
	}

	return &ExtractionRequest{
		Query:             query,
		Fields:            out,
		TargetRecordCount: target,
	}, nil
}

// Field returns the spec for name.
func (r *ExtractionRequest) Field(name string) (FieldSpec, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
