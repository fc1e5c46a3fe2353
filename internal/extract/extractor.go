package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
)

// Extractor dispatches on the declared content type. It is a pure transform:
// no filesystem access, no retries, no external tools.
type Extractor struct {
	log *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{log: logger}
}

func (e *Extractor) Extract(_ context.Context, doc Document) (TextExtractionResult, error) {
	start := time.Now()

	var res TextExtractionResult
	var err error
	switch doc.ContentType {
	case constants.PDF:
		res, err = extractPDF(doc.Data)
	case constants.DOCX:
		res, err = extractDocx(doc.Data)
	case constants.TXT:
		res, err = extractPlainText(doc.Data)
	default:
		err = common.NewAppError(common.CodeUnsupportedType, string(doc.ContentType), common.ErrInvalidInput)
	}
	if err != nil {
		e.log.Error("extract.failed", "name", doc.Name, "content_type", doc.ContentType, "error", err)
		return TextExtractionResult{}, err
	}

	res.Duration = time.Since(start)
	e.log.Info("extract.ok",
		"name", doc.Name,
		"content_type", doc.ContentType,
		"method", res.Method,
		"pages", res.Pages,
		"text_bytes", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
