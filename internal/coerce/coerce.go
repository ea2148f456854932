// Package coerce converts loosely typed extracted values to declared field
// types and supplies defaults for missing values.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sells-group/dataset-cli/internal/model"
)

// PlaceholderDate fills date-like string fields the model left empty.
const PlaceholderDate = "2025-04-27"

var truthy = map[string]bool{"true": true, "yes": true, "y": true, "1": true}

// IsMissing reports whether raw is null, the empty string, or exactly the
// N/A sentinel. Whitespace and other spellings are real values.
func IsMissing(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == model.MissingToken
	case model.Value:
		if v.IsNull() {
			return true
		}
		s, ok := v.Str()
		return ok && (s == "" || s == model.MissingToken)
	default:
		return false
	}
}

// Field resolves one field of a raw model object: missing values get an
// inferred default, everything else is coerced.
func Field(raw any, present bool, f model.FieldSpec) model.Value {
	if !present || IsMissing(raw) {
		return InferDefault(f.Name, f.Type)
	}
	return Coerce(raw, f.Type)
}

// Coerce converts raw to t. It never fails: anything unconvertible becomes
// the type's default.
func Coerce(raw any, t model.FieldType) (out model.Value) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Debug("coerce: recovered from panic",
				zap.String("type", string(t)),
				zap.Any("panic", r),
			)
			out = failureDefault(raw, t)
		}
	}()

	if v, ok := raw.(model.Value); ok {
		raw = v.Interface()
	}

	switch t {
	case model.TypeNumber:
		return toNumber(raw)
	case model.TypeInteger:
		return toInteger(raw)
	case model.TypeBoolean:
		return toBool(raw)
	default:
		return model.StringValue(Stringify(raw))
	}
}

// InferDefault picks a placeholder for a missing value from the field type
// and, for text fields, hints in the field name.
func InferDefault(name string, t model.FieldType) model.Value {
	switch t {
	case model.TypeNumber:
		return model.NumberValue(0)
	case model.TypeInteger:
		return model.IntegerValue(0)
	case model.TypeBoolean:
		return model.BoolValue(false)
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "category"), strings.Contains(lower, "type"), strings.Contains(lower, "class"):
		return model.StringValue("Other")
	case strings.Contains(lower, "date"):
		return model.StringValue(PlaceholderDate)
	case strings.Contains(lower, "name"):
		return model.StringValue("Unknown")
	case strings.Contains(lower, "price"):
		return model.StringValue("0.00")
	default:
		return model.StringValue("")
	}
}

// Stringify renders raw as text the way it would print.
func Stringify(raw any) string {
	if raw == nil {
		return ""
	}
	s, err := cast.ToStringE(raw)
	if err == nil {
		return s
	}
	if b, err := json.Marshal(raw); err == nil {
		return string(b)
	}
	return fmt.Sprint(raw)
}

func toNumber(raw any) model.Value {
	if f, ok := nativeFloat(raw); ok {
		return model.NumberValue(f)
	}
	digits := keep(Stringify(raw), func(r rune) bool { return (r >= '0' && r <= '9') || r == '.' })
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return model.NumberValue(0)
	}
	return model.NumberValue(f)
}

func toInteger(raw any) model.Value {
	if f, ok := nativeFloat(raw); ok && f >= math.MinInt64 && f <= math.MaxInt64 {
		return model.IntegerValue(int64(f))
	}
	digits := keep(Stringify(raw), func(r rune) bool { return r >= '0' && r <= '9' })
	i, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return model.IntegerValue(0)
	}
	return model.IntegerValue(i)
}

func toBool(raw any) model.Value {
	switch v := raw.(type) {
	case bool:
		return model.BoolValue(v)
	case string:
		return model.BoolValue(truthy[strings.ToLower(strings.TrimSpace(v))])
	}
	if f, ok := nativeFloat(raw); ok {
		return model.BoolValue(f != 0)
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return model.BoolValue(raw != nil)
	}
	return model.BoolValue(b)
}

// nativeFloat unwraps values that already arrived as JSON numbers.
func nativeFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func keep(s string, ok func(rune) bool) string {
	var b strings.Builder
	for _, r := range s {
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func failureDefault(raw any, t model.FieldType) model.Value {
	switch t {
	case model.TypeNumber:
		return model.NumberValue(0)
	case model.TypeInteger:
		return model.IntegerValue(0)
	case model.TypeBoolean:
		return model.BoolValue(false)
	default:
		return model.StringValue(fmt.Sprint(raw))
	}
}
