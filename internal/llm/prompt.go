package llm

import (
	"strings"

	"github.com/aakashr02/Metaforms-task/internal/common"
)

// BuildPrompt composes the extraction prompt for the given mode. The result
// is deterministic: identical inputs always produce the identical string.
// Schema-guided mode requires a non-empty schema; callers must reject that
// case before reaching the completion client.
func BuildPrompt(text string, mode Mode, schema string) (string, error) {
	switch mode {
	case ModeSchemaGuided:
		if strings.TrimSpace(schema) == "" {
			return "", common.NewAppError(common.CodeInvalidInput,
				"schema is required in schema-guided mode", common.ErrInvalidInput)
		}
		return buildSchemaGuidedPrompt(text, schema), nil
	case ModeAutomatic:
		return buildAutomaticPrompt(text), nil
	default:
		return "", common.NewAppError(common.CodeInvalidInput,
			"unknown extraction mode: "+string(mode), common.ErrInvalidInput)
	}
}

// buildSchemaGuidedPrompt embeds the caller's schema verbatim and pins down
// the output contract: all data, null for missing, per-field confidence,
// JSON only.
func buildSchemaGuidedPrompt(text, schema string) string {
	parts := []string{
		"Convert this document into JSON that conforms exactly to the following schema:",
		schema,
		"Document content:",
		text,
		"Rules:\n" +
			"1. Include all available data.\n" +
			"2. Mark missing fields as null.\n" +
			"3. Add \"_confidence\" scores (0-1) for each field.\n" +
			"4. Return ONLY valid JSON with no surrounding prose.",
	}
	return strings.Join(parts, "\n\n")
}

func buildAutomaticPrompt(text string) string {
	parts := []string{
		"Analyze this document and extract structured data as comprehensive JSON.",
		"Include:\n" +
			"- Key entities (people, organizations, locations)\n" +
			"- Important dates and numbers\n" +
			"- Relationships between entities\n" +
			"- Key-value pairs\n" +
			"- Document structure",
		"Add confidence scores (0-1) for each extracted field.",
		"Return ONLY the JSON output with no surrounding prose.",
		"Document:",
		text,
	}
	return strings.Join(parts, "\n\n")
}
