package model

import "github.com/rotisserie/eris"

// Error taxonomy surfaced to callers of the extraction and preprocessing
// entry points. Source and coercion failures are recovered where they happen
// and have no sentinel.
var (
	// ErrInput marks a missing or invalid query, field spec, or preprocessing spec.
	ErrInput = eris.New("invalid input")

	// ErrModelUnavailable means the language model cannot be invoked at all.
	ErrModelUnavailable = eris.New("language model unavailable")

	// ErrNoData means no record survived relevance, validity and dedup filtering.
	ErrNoData = eris.New("no data extracted")

	// ErrNotFound means a stored run does not exist.
	ErrNotFound = eris.New("not found")
)
