package model

import (
	"sort"
	"strconv"
	"strings"
)

// MissingToken is the placeholder the model is told to emit for unknown values.
const MissingToken = "N/A"

// Record maps field names to coerced values.
type Record map[string]Value

// Fingerprint is the case-insensitive, order-independent identity used for
// dedup: lower-cased name=value pairs sorted by name.
func (r Record) Fingerprint() string {
	pairs := make([]string, 0, len(r))
	for k, v := range r {
		pairs = append(pairs, strconv.Quote(strings.ToLower(k))+"="+strconv.Quote(strings.ToLower(v.String())))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// EmptyCount counts values that are null, blank, or the missing token.
func (r Record) EmptyCount() int {
	n := 0
	for _, v := range r {
		if IsEmptyValue(v) {
			n++
		}
	}
	return n
}

// IsEmptyValue reports whether v is null, "" or "N/A".
func IsEmptyValue(v Value) bool {
	if v.IsNull() {
		return true
	}
	s, ok := v.Str()
	return ok && (strings.TrimSpace(s) == "" || s == MissingToken)
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dedup keeps the first record for every fingerprint, preserving order.
func Dedup(records []Record) (kept []Record, dropped int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]Record, 0, len(records))
	for _, r := range records {
		fp := r.Fingerprint()
		if _, ok := seen[fp]; ok {
			dropped++
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}
