// Package preprocess reshapes an extracted dataset before export: null
// handling, then normalization, then encoding. Each step runs its rules in
// the order they were declared. Rules naming unknown columns are skipped.
package preprocess

import (
	"slices"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/dataset-cli/internal/model"
)

// Apply runs spec against a copy of ds and returns the result. ds is not
// modified.
func Apply(ds model.Dataset, spec model.PreprocessSpec) model.Dataset {
	out := ds.Clone()
	if len(out.Records) == 0 || spec.IsZero() {
		return out
	}

	for _, rule := range spec.HandleNulls {
		if !out.HasColumn(rule.Column) {
			skipped("handle_nulls", rule.Column)
			continue
		}
		handleNulls(&out, rule.Column, rule.Method)
	}
	for _, rule := range spec.Normalization {
		if !out.HasColumn(rule.Column) {
			skipped("normalization", rule.Column)
			continue
		}
		normalize(&out, rule.Column, rule.Method)
	}
	for _, rule := range spec.Encoding {
		if !out.HasColumn(rule.Column) {
			skipped("encoding", rule.Column)
			continue
		}
		encode(&out, rule.Column, rule.Method)
	}
	return out
}

func skipped(step, column string) {
	zap.L().Debug("preprocess: unknown column, rule skipped",
		zap.String("step", step),
		zap.String("column", column),
	)
}

func handleNulls(ds *model.Dataset, col string, strategy model.NullStrategy) {
	switch strategy {
	case model.NullDropRow:
		ds.Records = slices.DeleteFunc(ds.Records, func(r model.Record) bool {
			return r[col].IsNull()
		})
	case model.NullDropColumn:
		ds.DropColumn(col)
	case model.NullFillMean:
		if xs, ok := numeric(ds.Column(col)); ok {
			fill(ds, col, model.NumberValue(stat.Mean(xs, nil)))
		}
	case model.NullFillMedian:
		if xs, ok := numeric(ds.Column(col)); ok {
			fill(ds, col, model.NumberValue(median(xs)))
		}
	case model.NullFillMode:
		if m, ok := mode(ds.Column(col)); ok {
			fill(ds, col, m)
		}
	}
}

func fill(ds *model.Dataset, col string, v model.Value) {
	for _, r := range ds.Records {
		if r[col].IsNull() {
			r[col] = v
		}
	}
}

func normalize(ds *model.Dataset, col string, method model.NormalizationMethod) {
	xs, ok := numeric(ds.Column(col))
	if !ok {
		return
	}

	var scale func(x float64) float64
	switch method {
	case model.NormMinMax:
		lo, hi := floats.Min(xs), floats.Max(xs)
		if hi != lo {
			scale = func(x float64) float64 { return (x - lo) / (hi - lo) }
		}
	case model.NormZScore:
		// Sample std is undefined below two values; treat it as zero variance.
		if len(xs) >= 2 {
			mean, std := stat.MeanStdDev(xs, nil)
			if std != 0 {
				scale = func(x float64) float64 { return (x - mean) / std }
			}
		}
	default:
		return
	}

	for _, r := range ds.Records {
		if scale == nil {
			r[col] = model.NumberValue(0)
			continue
		}
		if f, ok := r[col].Float(); ok {
			r[col] = model.NumberValue(scale(f))
		}
	}
}

func encode(ds *model.Dataset, col string, method model.EncodingMethod) {
	switch method {
	case model.EncodeLabel:
		codes := make(map[string]int64)
		for _, r := range ds.Records {
			v := r[col]
			if v.IsNull() {
				r[col] = model.IntegerValue(-1)
				continue
			}
			code, ok := codes[v.Key()]
			if !ok {
				code = int64(len(codes))
				codes[v.Key()] = code
			}
			r[col] = model.IntegerValue(code)
		}
	case model.EncodeOneHot:
		vals := ds.Column(col)
		levels := distinct(vals)
		sort.SliceStable(levels, func(i, j int) bool { return model.Compare(levels[i], levels[j]) < 0 })

		ds.DropColumn(col)
		for _, level := range levels {
			name := col + "_" + level.String()
			ds.Columns = append(ds.Columns, name)
			for i, r := range ds.Records {
				r[name] = model.BoolValue(!vals[i].IsNull() && vals[i].Equal(level))
			}
		}
	}
}

// numeric returns the non-null values of a column when the column has at
// least one and every one of them is a number.
func numeric(vals []model.Value) ([]float64, bool) {
	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok || !v.IsNumeric() {
			return nil, false
		}
		xs = append(xs, f)
	}
	return xs, len(xs) > 0
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent non-null value, the smallest on ties.
func mode(vals []model.Value) (model.Value, bool) {
	counts := make(map[string]int)
	for _, v := range vals {
		if !v.IsNull() {
			counts[v.Key()]++
		}
	}

	var best model.Value
	bestCount := 0
	for _, v := range distinct(vals) {
		c := counts[v.Key()]
		if c > bestCount || (c == bestCount && model.Compare(v, best) < 0) {
			best, bestCount = v, c
		}
	}
	return best, bestCount > 0
}

// distinct returns the non-null values in first-seen order.
func distinct(vals []model.Value) []model.Value {
	seen := make(map[string]bool)
	var out []model.Value
	for _, v := range vals {
		if v.IsNull() || seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	return out
}
