package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// Value is a single cell: null, string, number, integer or boolean.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	f    float64
	i    int64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// NumberValue wraps f. NaN and infinities are stored as null since they have
// no JSON representation.
func NumberValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, f: f}
}

// IntegerValue wraps i.
func IntegerValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether v is a number or an integer.
func (v Value) IsNumeric() bool { return v.kind == KindNumber || v.kind == KindInteger }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Float returns the numeric payload of a number or integer.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInteger }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBoolean }

// String renders v as plain text. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns v as a plain Go value (nil, string, float64, int64, bool).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.f
	case KindInteger:
		return v.i
	case KindBoolean:
		return v.b
	default:
		return nil
	}
}

// Key is a comparable identity for v. Numbers and integers with the same
// magnitude share a key.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber, KindInteger:
		f, _ := v.Float()
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		return "s:" + v.s
	case KindBoolean:
		return "b:" + strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// Equal reports whether a and b hold the same value.
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// rank orders kinds for Compare: null, boolean, numeric, string.
func (v Value) rank() int {
	switch v.kind {
	case KindBoolean:
		return 1
	case KindNumber, KindInteger:
		return 2
	case KindString:
		return 3
	default:
		return 0
	}
}

// Compare orders values: null < boolean < numeric < string, then by payload.
func Compare(a, b Value) int {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		return ra - rb
	}
	switch a.rank() {
	case 1:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case 2:
		fa, _ := a.Float()
		fb, _ := b.Float()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case 3:
		return strings.Compare(a.s, b.s)
	default:
		return 0
	}
}

// ValueOf converts a decoded Go value into a Value. Composite values are
// rendered as compact JSON strings.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return IntegerValue(int64(t))
	case int64:
		return IntegerValue(t)
	case int32:
		return IntegerValue(int64(t))
	case json.Number:
		return numberFromLiteral(string(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return StringValue(fmt.Sprint(t))
		}
		return StringValue(string(b))
	}
}

// numberFromLiteral keeps integral JSON literals as integers.
func numberFromLiteral(lit string) Value {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return IntegerValue(i)
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return StringValue(lit)
	}
	return NumberValue(f)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return []byte(strconv.FormatFloat(v.f, 'f', -1, 64)), nil
	case KindInteger:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindBoolean:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return eris.Wrap(err, "model: decode value")
	}
	*v = ValueOf(x)
	return nil
}
