package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/dataset-cli/internal/model"
)

// DefaultPromptChunkLimit caps how much of a chunk is pasted into the prompt.
const DefaultPromptChunkLimit = 3000

// SystemPrompt sets the model's role for every extraction call.
const SystemPrompt = `You're an expert Data Analyst. Extract features and their values from the given content.
If no data found for a feature put the feature value as N/A`

const promptTemplate = `You are a data analyst extracting structured data about %[1]s from web content.

REQUIREMENTS:
1. Only extract records that are highly relevant to the query: "%[1]s"
2. For each field below, extract the exact value from the content:
%[2]s

SPECIAL INSTRUCTIONS:
- For categorical fields, ONLY use the specified categories
- For number fields, extract numerical values only (remove symbols like $, %%)
- For boolean fields, convert to true/false
- Skip any record where you can't find ALL field values
- Balance categorical values evenly across the dataset
- NEVER invent values - use "N/A" if not found
- Reject any content that isn't clearly about %[1]s

CONTENT TO EXTRACT FROM:
%[3]s

Return ONLY a JSON array of objects with all specified fields. Example:
%[4]s`

// BuildPrompt renders the extraction instructions for one chunk. The chunk is
// cut to the first limit runes; limit <= 0 means DefaultPromptChunkLimit.
func BuildPrompt(fields []model.FieldSpec, chunk, query string, limit int) string {
	if limit <= 0 {
		limit = DefaultPromptChunkLimit
	}
	lines := make([]string, len(fields))
	for i, f := range fields {
		if f.Type == model.TypeCategorical {
			lines[i] = fmt.Sprintf("- %s (categorical: %s)", f.Name, strings.Join(f.Categories, ", "))
		} else {
			lines[i] = fmt.Sprintf("- %s (%s)", f.Name, f.Type)
		}
		if f.Description != "" {
			lines[i] += ": " + f.Description
		}
	}
	return fmt.Sprintf(promptTemplate, query, strings.Join(lines, "\n"), truncateRunes(chunk, limit), exampleArray(fields))
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// exampleArray shows the expected output shape using the caller's own fields.
func exampleArray(fields []model.FieldSpec) string {
	var b strings.Builder
	b.WriteString("[\n  {\n")
	for i, f := range fields {
		fmt.Fprintf(&b, "    %q: %s", f.Name, exampleValue(f))
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("  }\n]")
	return b.String()
}

func exampleValue(f model.FieldSpec) string {
	switch f.Type {
	case model.TypeNumber:
		return "42.99"
	case model.TypeInteger:
		return "42"
	case model.TypeBoolean:
		return "true"
	case model.TypeCategorical:
		if len(f.Categories) > 0 {
			return fmt.Sprintf("%q", f.Categories[0])
		}
	}
	lower := strings.ToLower(f.Name)
	switch {
	case strings.Contains(lower, "date"):
		return `"2025-04-27"`
	case strings.Contains(lower, "name"):
		return `"Example Name"`
	default:
		return `"Example Value"`
	}
}
