package interpret

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestInterpretFieldCountAndAverageConfidence(t *testing.T) {
	out := Interpret(`{"name": "Alice", "name_confidence": 0.9, "age_confidence": 0.7}`)
	if out.Fallback {
		t.Fatalf("expected structured result, got fallback")
	}
	if out.Structured.FieldCount == nil || *out.Structured.FieldCount != 3 {
		t.Errorf("field count = %v, want 3", out.Structured.FieldCount)
	}
	if out.Structured.AvgConfidence == nil {
		t.Fatalf("expected average confidence")
	}
	if got := *out.Structured.AvgConfidence; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("avg confidence = %v, want 0.8", got)
	}
}

func TestInterpretNestedConfidences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{
			name: "array of objects",
			raw:  `{"items": [{"score_confidence": 0.5}, {"x": {"confidence": 1.0}}]}`,
			want: 0.75,
		},
		{
			name: "case insensitive key match",
			raw:  `{"Confidence": 0.4, "entity": {"LOCATION_CONFIDENCE": 0.6}}`,
			want: 0.5,
		},
		{
			name: "non-numeric confidence ignored, subtree still walked",
			raw:  `{"confidence": "high", "inner": {"confidence": 0.4}}`,
			want: 0.4,
		},
		{
			name: "matching key holding an object is recursed",
			raw:  `{"confidence_block": {"a_confidence": 0.2}}`,
			want: 0.2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Interpret(tt.raw)
			if out.Fallback {
				t.Fatalf("expected structured result")
			}
			if out.Structured.AvgConfidence == nil {
				t.Fatalf("expected average confidence")
			}
			if got := *out.Structured.AvgConfidence; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("avg confidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterpretNoConfidenceFields(t *testing.T) {
	out := Interpret(`{"name": "Alice", "age": 30}`)
	if out.Fallback {
		t.Fatalf("expected structured result")
	}
	if out.Structured.AvgConfidence != nil {
		t.Errorf("avg confidence = %v, want nil", *out.Structured.AvgConfidence)
	}
	if out.Structured.FieldCount == nil || *out.Structured.FieldCount != 2 {
		t.Errorf("field count = %v, want 2", out.Structured.FieldCount)
	}
}

func TestInterpretNonObjectTopLevel(t *testing.T) {
	for _, raw := range []string{`[1, 2, 3]`, `"hello"`, `42`, `null`} {
		out := Interpret(raw)
		if out.Fallback {
			t.Errorf("Interpret(%q) fell back, want structured", raw)
			continue
		}
		if out.Structured.FieldCount != nil {
			t.Errorf("Interpret(%q) field count = %v, want nil", raw, *out.Structured.FieldCount)
		}
	}
}

func TestInterpretFallbackPreservesRawText(t *testing.T) {
	raw := `Sure, here's your JSON: {"name": "Alice"}`
	out := Interpret(raw)
	if !out.Fallback {
		t.Fatalf("expected fallback for leading prose")
	}
	if out.RawFallback != raw {
		t.Errorf("raw fallback = %q, want original text unmodified", out.RawFallback)
	}
	if out.Structured != nil {
		t.Errorf("fallback must not fabricate a structured result")
	}
}

func TestInterpretIdempotent(t *testing.T) {
	for _, raw := range []string{
		`{"a": 1, "a_confidence": 0.5}`,
		`not json at all`,
	} {
		first := Interpret(raw)
		second := Interpret(raw)
		if first.Fallback != second.Fallback {
			t.Fatalf("Interpret(%q) not idempotent on fallback", raw)
		}
		if first.Fallback {
			if first.RawFallback != second.RawFallback {
				t.Errorf("Interpret(%q) raw fallback differs between runs", raw)
			}
			continue
		}
		if !reflect.DeepEqual(first.Structured.Value, second.Structured.Value) {
			t.Errorf("Interpret(%q) value differs between runs", raw)
		}
	}
}

func TestPrettyJSONRoundTrip(t *testing.T) {
	raw := `{"b": [1, {"c_confidence": 0.25}], "a": "x"}`
	out := Interpret(raw)
	if out.Fallback {
		t.Fatalf("expected structured result")
	}

	pretty, err := out.Structured.PrettyJSON()
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}

	var reparsed any
	if err := json.Unmarshal(pretty, &reparsed); err != nil {
		t.Fatalf("reparsing pretty output: %v", err)
	}
	var direct any
	if err := json.Unmarshal([]byte(raw), &direct); err != nil {
		t.Fatalf("parsing original: %v", err)
	}
	if !reflect.DeepEqual(reparsed, direct) {
		t.Errorf("round-trip mismatch: %v != %v", reparsed, direct)
	}
}
