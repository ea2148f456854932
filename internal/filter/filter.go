// Package filter decides which pages are worth extracting from and which
// extracted records may join the result set.
package filter

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/dataset-cli/internal/model"
)

var boolTokens = map[string]struct{}{"true": {}, "false": {}, "yes": {}, "no": {}}

// IsRelevant reports whether content shares at least half of the distinct
// whitespace-separated, case-folded query tokens.
func IsRelevant(content, query string) bool {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return true
	}
	contentTokens := tokenSet(content)
	hits := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			hits++
		}
	}
	return hits*2 >= len(queryTokens)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(cases.Fold().String(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// IsValid checks r against the declared fields and the tracker's current
// category counts without mutating anything.
func IsValid(r model.Record, fields []model.FieldSpec, tracker *model.CategoryTracker) bool {
	return check(r, fields, tracker.Count)
}

// Admit validates r and, when valid, bumps its category counts in the same
// critical section so concurrent callers cannot overshoot a quota.
func Admit(r model.Record, fields []model.FieldSpec, tracker *model.CategoryTracker) bool {
	return tracker.Admit(r, func(count func(field, category string) int) bool {
		return check(r, fields, count)
	})
}

func check(r model.Record, fields []model.FieldSpec, count func(field, category string) int) bool {
	for _, f := range fields {
		v, ok := r[f.Name]
		if !ok {
			return false
		}
		switch f.Type {
		case model.TypeCategorical:
			cat := v.String()
			if v.IsNull() || !f.HasCategory(cat) {
				return false
			}
			if f.MaxPerCategory > 0 && count(f.Name, cat) >= f.MaxPerCategory {
				return false
			}
		case model.TypeNumber, model.TypeInteger:
			if !isNumber(v) {
				return false
			}
		case model.TypeBoolean:
			if !isBool(v) {
				return false
			}
		}
	}
	return true
}

func isNumber(v model.Value) bool {
	if v.IsNumeric() {
		return true
	}
	s, ok := v.Str()
	if !ok {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isBool(v model.Value) bool {
	if _, ok := v.Bool(); ok {
		return true
	}
	s, ok := v.Str()
	if !ok {
		return false
	}
	_, ok = boolTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
