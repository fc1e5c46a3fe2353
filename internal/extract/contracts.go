package extract

import (
	"context"
	"time"

	"github.com/aakashr02/Metaforms-task/constants"
)

// Document is one uploaded file: raw bytes plus the declared content type.
// Transient; lives only for the duration of a single extraction request.
type Document struct {
	Name        string
	ContentType constants.ContentType
	Data        []byte
}

// TextExtractor is Stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int    // PDF page count / DOCX paragraph count; 1 for plain text
	Method   string // "pdf-text" | "docx-xml" | "plain-text"
	Duration time.Duration
}
