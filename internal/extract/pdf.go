package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aakashr02/Metaforms-task/internal/common"
)

// extractPDF concatenates the text of every page in document order, pages
// joined with a single newline.
func extractPDF(data []byte) (res TextExtractionResult, err error) {
	// The reader panics on some malformed cross-reference tables; fold that
	// into the same parse-error surface as a returned error.
	defer func() {
		if r := recover(); r != nil {
			err = common.NewAppError(common.CodePDFParse, fmt.Sprintf("parse pdf: %v", r), nil)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return TextExtractionResult{}, common.NewAppError(common.CodePDFParse, "parse pdf", err)
	}

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return TextExtractionResult{}, common.NewAppError(common.CodePDFParse,
				fmt.Sprintf("extract text from page %d", i), err)
		}
		pages = append(pages, txt)
	}

	return TextExtractionResult{
		Text:   strings.Join(pages, "\n"),
		Pages:  numPages,
		Method: "pdf-text",
	}, nil
}
