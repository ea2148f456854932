package coerce

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/dataset-cli/internal/model"
)

func TestCoerce_Number(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{"currency", "$59.99", 59.99},
		{"percent", "25%", 25.0},
		{"missing token", "N/A", 0.0},
		{"thousands separator", "1,299.00", 1299.0},
		{"two dots", "1.2.3", 0.0},
		{"native float", 12.5, 12.5},
		{"json number", json.Number("-4.5"), -4.5},
		{"native int", 7, 7.0},
		{"bool", true, 0.0},
		{"nil", nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Coerce(tt.raw, model.TypeNumber)
			assert.Equal(t, model.KindNumber, got.Kind())
			f, _ := got.Float()
			assert.InDelta(t, tt.want, f, 1e-9)
		})
	}
}

func TestCoerce_Integer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  any
		want int64
	}{
		{"3 items", 3},
		{"1,024", 1024},
		{"none", 0},
		{"", 0},
		{3.9, 3},
		{json.Number("42"), 42},
		{"99999999999999999999999", 0},
	}
	for _, tt := range tests {
		got := Coerce(tt.raw, model.TypeInteger)
		assert.Equal(t, model.IntegerValue(tt.want), got, "%v", tt.raw)
	}
}

func TestCoerce_Boolean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  any
		want bool
	}{
		{"Yes", true},
		{"true", true},
		{"Y", true},
		{"1", true},
		{" TRUE ", true},
		{"no", false},
		{"false", false},
		{"maybe", false},
		{true, true},
		{false, false},
		{1.0, true},
		{0, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, model.BoolValue(tt.want), Coerce(tt.raw, model.TypeBoolean), "%v", tt.raw)
	}
}

func TestCoerce_Stringish(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.StringValue("59.99"), Coerce(59.99, model.TypeString))
	assert.Equal(t, model.StringValue("12"), Coerce(json.Number("12"), model.TypeString))
	assert.Equal(t, model.StringValue("true"), Coerce(true, model.TypeString))
	assert.Equal(t, model.StringValue(`["a","b"]`), Coerce([]any{"a", "b"}, model.TypeString))
	assert.Equal(t, model.StringValue(" Dell "), Coerce(" Dell ", model.TypeCategorical))
	assert.Equal(t, model.StringValue(" Dell "), Coerce(" Dell ", model.TypeString))
	assert.Equal(t, model.NumberValue(3), Coerce(model.StringValue("$3"), model.TypeNumber))
}

func TestInferDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  model.FieldType
		want model.Value
	}{
		{"Price", model.TypeNumber, model.NumberValue(0)},
		{"Count", model.TypeInteger, model.IntegerValue(0)},
		{"InStock", model.TypeBoolean, model.BoolValue(false)},
		{"Product Category", model.TypeString, model.StringValue("Other")},
		{"BodyType", model.TypeCategorical, model.StringValue("Other")},
		{"Classification", model.TypeString, model.StringValue("Other")},
		{"Release Date", model.TypeString, model.StringValue(PlaceholderDate)},
		{"Name", model.TypeString, model.StringValue("Unknown")},
		{"price_text", model.TypeString, model.StringValue("0.00")},
		{"Notes", model.TypeString, model.StringValue("")},
		// Category hints win over name hints.
		{"Category Name", model.TypeString, model.StringValue("Other")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferDefault(tt.name, tt.typ), tt.name)
	}
}

func TestIsMissingAndField(t *testing.T) {
	t.Parallel()

	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(""))
	assert.True(t, IsMissing("N/A"))
	assert.True(t, IsMissing(model.Null()))
	assert.True(t, IsMissing(model.StringValue("N/A")))
	assert.False(t, IsMissing("  "))
	assert.False(t, IsMissing("n/a"))
	assert.False(t, IsMissing(model.StringValue(" N/A ")))
	assert.False(t, IsMissing(0))
	assert.False(t, IsMissing("0"))

	price := model.FieldSpec{Name: "Price", Type: model.TypeNumber}
	name := model.FieldSpec{Name: "Name", Type: model.TypeString}

	assert.Equal(t, model.NumberValue(0), Field(nil, false, price))
	assert.Equal(t, model.StringValue("Unknown"), Field("N/A", true, name))
	assert.Equal(t, model.StringValue("n/a"), Field("n/a", true, model.FieldSpec{Name: "Title", Type: model.TypeString}))
	assert.Equal(t, model.NumberValue(10.5), Field("$10.50", true, price))
}
