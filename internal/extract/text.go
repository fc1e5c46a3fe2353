package extract

import (
	"unicode/utf8"

	"github.com/aakashr02/Metaforms-task/internal/common"
)

// extractPlainText decodes the bytes as UTF-8 verbatim. Empty input is a
// valid (empty) document. Invalid byte sequences fail fast rather than being
// silently replaced, so the model never sees corrupted text.
func extractPlainText(data []byte) (TextExtractionResult, error) {
	if !utf8.Valid(data) {
		return TextExtractionResult{}, common.NewAppError(common.CodeEncoding,
			"document is not valid UTF-8", nil)
	}
	return TextExtractionResult{
		Text:   string(data),
		Pages:  1,
		Method: "plain-text",
	}, nil
}
