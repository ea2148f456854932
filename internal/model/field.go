package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldType is the semantic type a caller declares for an output column.
type FieldType string

// Supported field types.
const (
	TypeString      FieldType = "string"
	TypeNumber      FieldType = "number"
	TypeInteger     FieldType = "integer"
	TypeBoolean     FieldType = "boolean"
	TypeCategorical FieldType = "categorical"
)

// fieldTypeAliases maps the loose names callers send to canonical types.
var fieldTypeAliases = map[string]FieldType{
	"string":      TypeString,
	"str":         TypeString,
	"text":        TypeString,
	"number":      TypeNumber,
	"float":       TypeNumber,
	"double":      TypeNumber,
	"integer":     TypeInteger,
	"int":         TypeInteger,
	"boolean":     TypeBoolean,
	"bool":        TypeBoolean,
	"categorical": TypeCategorical,
	"category":    TypeCategorical,
}

// ParseFieldType resolves a type name (case-insensitive, aliases allowed).
// An empty name defaults to string.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeString, nil
	}
	ft, ok := fieldTypeAliases[s]
	if !ok {
		return "", eris.Wrapf(ErrInput, "model: unknown field type %q", s)
	}
	return ft, nil
}

// IsNumeric reports whether values of this type are parsed as numbers.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeInteger
}

// FieldSpec describes one output column of an extraction.
type FieldSpec struct {
	Name           string    `json:"name" yaml:"name"`
	Type           FieldType `json:"type" yaml:"type"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Categories     []string  `json:"categories,omitempty" yaml:"categories,omitempty"`
	MaxPerCategory int       `json:"max_per_category,omitempty" yaml:"max_per_category,omitempty"`
}

// HasCategory reports whether v is one of the declared categories.
func (f FieldSpec) HasCategory(v string) bool {
	for _, c := range f.Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Validate checks the categories/type invariant.
func (f FieldSpec) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return eris.Wrap(ErrInput, "model: field name is required")
	}
	switch f.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeCategorical:
	default:
		return eris.Wrapf(ErrInput, "model: field %q has unknown type %q", f.Name, f.Type)
	}
	switch {
	case f.Type == TypeCategorical && len(f.Categories) == 0:
		return eris.Wrapf(ErrInput, "model: categorical field %q needs categories", f.Name)
	case f.Type != TypeCategorical && len(f.Categories) > 0:
		return eris.Wrapf(ErrInput, "model: field %q declares categories but is %s", f.Name, f.Type)
	}
	return nil
}

// CategoryList accepts either a comma-separated string or a list of strings.
// Blank entries are dropped.
type CategoryList []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CategoryList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = splitCategories(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return eris.Wrap(ErrInput, "model: categories must be a string or a list of strings")
	}
	*c = cleanCategories(list)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CategoryList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = splitCategories(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return eris.Wrap(ErrInput, "model: decode categories")
		}
		*c = cleanCategories(list)
		return nil
	default:
		return eris.Wrap(ErrInput, "model: categories must be a string or a list of strings")
	}
}

func splitCategories(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return cleanCategories(strings.Split(s, ","))
}

func cleanCategories(in []string) []string {
	var out []string
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// fieldInput is the wire shape of one entry of a name→spec mapping.
type fieldInput struct {
	Type        string       `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
	Categories  CategoryList `json:"categories" yaml:"categories"`
}

func (in fieldInput) spec(name string) (FieldSpec, error) {
	ft, err := ParseFieldType(in.Type)
	if err != nil {
		return FieldSpec{}, eris.Wrapf(err, "model: field %q", name)
	}
	return FieldSpec{
		Name:        name,
		Type:        ft,
		Description: in.Description,
		Categories:  []string(in.Categories),
	}, nil
}

// FieldSet is an ordered list of field specs. It decodes from a JSON or YAML
// mapping of name to spec and keeps the mapping's document order.
type FieldSet []FieldSpec

// Names returns the field names in declaration order.
func (fs FieldSet) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// UnmarshalJSON implements json.Unmarshaler.
func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	var out FieldSet
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var in fieldInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return eris.Wrapf(ErrInput, "model: decode field %q: %v", key, err)
		}
		spec, err := in.spec(key)
		if err != nil {
			return err
		}
		out = append(out, spec)
		return nil
	})
	if err != nil {
		return err
	}
	*fs = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (fs *FieldSet) UnmarshalYAML(node *yaml.Node) error {
	var out FieldSet
	err := walkMapping(node, func(key string, value *yaml.Node) error {
		var in fieldInput
		if err := value.Decode(&in); err != nil {
			return eris.Wrapf(ErrInput, "model: decode field %q: %v", key, err)
		}
		spec, err := in.spec(key)
		if err != nil {
			return err
		}
		out = append(out, spec)
		return nil
	})
	if err != nil {
		return err
	}
	*fs = out
	return nil
}

// MarshalJSON writes the set back as a name→spec object in declaration order.
func (fs FieldSet) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(struct {
			Type        FieldType `json:"type"`
			Description string    `json:"description,omitempty"`
			Categories  []string  `json:"categories,omitempty"`
		}{f.Type, f.Description, f.Categories})
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(body)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
