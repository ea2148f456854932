package model

import (
	"encoding"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// NullStrategy says what to do with nulls in a column.
type NullStrategy int

// Null handling strategies.
const (
	NullDropRow NullStrategy = iota + 1
	NullDropColumn
	NullFillMean
	NullFillMedian
	NullFillMode
)

var nullStrategyNames = map[NullStrategy]string{
	NullDropRow:    "drop_row",
	NullDropColumn: "drop_column",
	NullFillMean:   "fill_mean",
	NullFillMedian: "fill_median",
	NullFillMode:   "fill_mode",
}

func (s NullStrategy) String() string { return nullStrategyNames[s] }

// MarshalText implements encoding.TextMarshaler.
func (s NullStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NullStrategy) UnmarshalText(b []byte) error {
	v, err := lookupName(nullStrategyNames, string(b), "null strategy")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// NormalizationMethod scales a numeric column.
type NormalizationMethod int

// Normalization methods.
const (
	NormMinMax NormalizationMethod = iota + 1
	NormZScore
)

var normalizationNames = map[NormalizationMethod]string{
	NormMinMax: "minmax",
	NormZScore: "zscore",
}

func (m NormalizationMethod) String() string { return normalizationNames[m] }

// MarshalText implements encoding.TextMarshaler.
func (m NormalizationMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *NormalizationMethod) UnmarshalText(b []byte) error {
	v, err := lookupName(normalizationNames, string(b), "normalization method")
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// EncodingMethod turns a column into numeric codes or indicator columns.
type EncodingMethod int

// Encoding methods.
const (
	EncodeLabel EncodingMethod = iota + 1
	EncodeOneHot
)

var encodingNames = map[EncodingMethod]string{
	EncodeLabel:  "label",
	EncodeOneHot: "onehot",
}

func (m EncodingMethod) String() string { return encodingNames[m] }

// MarshalText implements encoding.TextMarshaler.
func (m EncodingMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *EncodingMethod) UnmarshalText(b []byte) error {
	v, err := lookupName(encodingNames, string(b), "encoding method")
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func lookupName[T comparable](names map[T]string, s, what string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range names {
		if name == s {
			return k, nil
		}
	}
	var zero T
	return zero, eris.Wrapf(ErrInput, "model: unknown %s %q", what, s)
}

// Rule applies Method to Column.
type Rule[T any] struct {
	Column string
	Method T
}

// Rules is an ordered column→method mapping. It decodes from a JSON or YAML
// object and keeps document order.
type Rules[T any] []Rule[T]

func decodeMethod[T any](column string, text string) (Rule[T], error) {
	var m T
	u, ok := any(&m).(encoding.TextUnmarshaler)
	if !ok {
		return Rule[T]{}, eris.Errorf("model: %T cannot decode from text", m)
	}
	if err := u.UnmarshalText([]byte(text)); err != nil {
		return Rule[T]{}, eris.Wrapf(err, "model: column %q", column)
	}
	return Rule[T]{Column: column, Method: m}, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rules[T]) UnmarshalJSON(data []byte) error {
	var out Rules[T]
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return eris.Wrapf(ErrInput, "model: method for column %q must be a string", key)
		}
		rule, err := decodeMethod[T](key, s)
		if err != nil {
			return err
		}
		out = append(out, rule)
		return nil
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Rules[T]) UnmarshalYAML(node *yaml.Node) error {
	var out Rules[T]
	err := walkMapping(node, func(key string, value *yaml.Node) error {
		if value.Kind != yaml.ScalarNode {
			return eris.Wrapf(ErrInput, "model: method for column %q must be a string", key)
		}
		rule, err := decodeMethod[T](key, value.Value)
		if err != nil {
			return err
		}
		out = append(out, rule)
		return nil
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// MarshalJSON writes the rules as an ordered object.
func (r Rules[T]) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, rule := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(rule.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rule.Method)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// PreprocessSpec configures the three preprocessing steps. Any of them may be
// empty.
type PreprocessSpec struct {
	HandleNulls   Rules[NullStrategy]        `json:"handle_nulls" yaml:"handle_nulls"`
	Normalization Rules[NormalizationMethod] `json:"normalization" yaml:"normalization"`
	Encoding      Rules[EncodingMethod]      `json:"encoding" yaml:"encoding"`
}

// IsZero reports whether the spec configures nothing.
func (p PreprocessSpec) IsZero() bool {
	return len(p.HandleNulls) == 0 && len(p.Normalization) == 0 && len(p.Encoding) == 0
}
