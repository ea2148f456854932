package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPreprocessSpec_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	data := `{
		"handle_nulls": {"Price": "fill_mean", "Brand": "fill_mode", "Notes": "drop_column"},
		"normalization": {"Rating": "zscore", "Price": "minmax"},
		"encoding": {"Color": "onehot", "Brand": "label"}
	}`
	var spec PreprocessSpec
	require.NoError(t, json.Unmarshal([]byte(data), &spec))

	assert.Equal(t, Rules[NullStrategy]{
		{Column: "Price", Method: NullFillMean},
		{Column: "Brand", Method: NullFillMode},
		{Column: "Notes", Method: NullDropColumn},
	}, spec.HandleNulls)
	assert.Equal(t, Rules[NormalizationMethod]{
		{Column: "Rating", Method: NormZScore},
		{Column: "Price", Method: NormMinMax},
	}, spec.Normalization)
	assert.Equal(t, Rules[EncodingMethod]{
		{Column: "Color", Method: EncodeOneHot},
		{Column: "Brand", Method: EncodeLabel},
	}, spec.Encoding)
	assert.False(t, spec.IsZero())

	out, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, data, string(out))
}

func TestPreprocessSpec_YAML(t *testing.T) {
	t.Parallel()

	data := `
handle_nulls:
  Price: fill_median
  Brand: drop_row
encoding:
  Brand: LABEL
`
	var spec PreprocessSpec
	require.NoError(t, yaml.Unmarshal([]byte(data), &spec))
	assert.Equal(t, Rules[NullStrategy]{
		{Column: "Price", Method: NullFillMedian},
		{Column: "Brand", Method: NullDropRow},
	}, spec.HandleNulls)
	assert.Empty(t, spec.Normalization)
	assert.Equal(t, Rules[EncodingMethod]{{Column: "Brand", Method: EncodeLabel}}, spec.Encoding)
}

func TestPreprocessSpec_RejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	var spec PreprocessSpec
	err := json.Unmarshal([]byte(`{"normalization": {"Price": "log"}}`), &spec)
	assert.True(t, errors.Is(err, ErrInput))

	err = yaml.Unmarshal([]byte("handle_nulls:\n  Price: interpolate\n"), &spec)
	assert.True(t, errors.Is(err, ErrInput))

	err = json.Unmarshal([]byte(`{"encoding": {"Color": 1}}`), &spec)
	assert.True(t, errors.Is(err, ErrInput))
}

func TestPreprocessSpec_Empty(t *testing.T) {
	t.Parallel()

	var spec PreprocessSpec
	require.NoError(t, json.Unmarshal([]byte(`{}`), &spec))
	assert.True(t, spec.IsZero())
}
