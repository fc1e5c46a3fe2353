package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/aakashr02/Metaforms-task/internal/common"
)

// extractDocx reads word/document.xml out of the OOXML package and joins
// paragraph texts in document order with a single newline.
func extractDocx(data []byte) (TextExtractionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return TextExtractionResult{}, common.NewAppError(common.CodeDocxParse, "open docx package", err)
	}

	var docXML *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML = f
			break
		}
	}
	if docXML == nil {
		return TextExtractionResult{}, common.NewAppError(common.CodeDocxParse,
			"word/document.xml not found in package", nil)
	}

	rc, err := docXML.Open()
	if err != nil {
		return TextExtractionResult{}, common.NewAppError(common.CodeDocxParse, "open word/document.xml", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return TextExtractionResult{}, common.NewAppError(common.CodeDocxParse, "decode word/document.xml", err)
	}

	return TextExtractionResult{
		Text:   strings.Join(paragraphs, "\n"),
		Pages:  len(paragraphs),
		Method: "docx-xml",
	}, nil
}

// docxParagraphs walks the WordprocessingML token stream collecting the
// character data of every w:t run, one entry per w:p paragraph.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var cur strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				if inParagraph {
					cur.WriteByte('\t')
				}
			case "br":
				if inParagraph {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, cur.String())
					inParagraph = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inParagraph && inText {
				cur.Write(t)
			}
		}
	}
	return paragraphs, nil
}
