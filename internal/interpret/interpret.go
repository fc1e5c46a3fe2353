// Package interpret turns raw completion text into a structured result with
// confidence statistics, or preserves the text verbatim when it is not valid
// JSON. A parse failure here is a normal terminal outcome, never an error.
package interpret

import (
	"encoding/json"
)

// StructuredResult wraps a parsed JSON value of unconstrained shape together
// with its derived statistics.
type StructuredResult struct {
	// Value is the parsed JSON tree (map[string]any / []any / scalars).
	Value any

	// FieldCount is the number of direct keys, defined only when Value is
	// an object.
	FieldCount *int

	// AvgConfidence is the arithmetic mean of every numeric value reachable
	// anywhere in the tree whose immediate key contains "confidence"
	// (case-insensitive). Nil when no such value exists. Full precision;
	// rounding belongs to presentation.
	AvgConfidence *float64

	// SchemaValid is set by the pipeline in schema-guided mode. Advisory
	// only: a false value never discards the result.
	SchemaValid *bool
}

// Outcome is the terminal result of interpreting one completion.
type Outcome struct {
	Structured *StructuredResult
	// RawFallback carries the completion text unmodified when it failed to
	// parse as JSON.
	RawFallback string
	Fallback    bool
}

// Interpret attempts a strict JSON parse of rawText. Idempotent: the same
// input always yields an equal outcome.
func Interpret(rawText string) Outcome {
	var v any
	if err := json.Unmarshal([]byte(rawText), &v); err != nil {
		return Outcome{RawFallback: rawText, Fallback: true}
	}

	res := &StructuredResult{Value: v}
	if obj, ok := v.(map[string]any); ok {
		n := len(obj)
		res.FieldCount = &n
	}
	if confs := collectConfidences(v); len(confs) > 0 {
		sum := 0.0
		for _, c := range confs {
			sum += c
		}
		avg := sum / float64(len(confs))
		res.AvgConfidence = &avg
	}
	return Outcome{Structured: res}
}

// PrettyJSON serializes the parsed value with 2-space indentation, the exact
// bytes offered for download as extracted_data.json.
func (r *StructuredResult) PrettyJSON() ([]byte, error) {
	return json.MarshalIndent(r.Value, "", "  ")
}
