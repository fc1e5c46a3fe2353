package interpret

import "strings"

// collectConfidences walks the whole JSON tree, through nested objects and
// arrays, gathering numeric values whose enclosing key names a confidence
// score.
func collectConfidences(v any) []float64 {
	var out []float64
	walkConfidences(v, &out)
	return out
}

func walkConfidences(v any, out *[]float64) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if isConfidenceKey(k) {
				if n, ok := child.(float64); ok {
					*out = append(*out, n)
					continue
				}
			}
			walkConfidences(child, out)
		}
	case []any:
		for _, child := range t {
			walkConfidences(child, out)
		}
	}
}

func isConfidenceKey(k string) bool {
	return strings.Contains(strings.ToLower(k), "confidence")
}
