package constants

import "strings"

// ContentType is the declared format tag for an uploaded document.
type ContentType string

// Stable values (store these exact strings in DB).
const (
	PDF          ContentType = "PDF"
	DOCX         ContentType = "DOCX"
	TXT          ContentType = "TXT"
	Unrecognized ContentType = ""
)

// ContentTypes holds the supported document formats.
var ContentTypes = []ContentType{PDF, DOCX, TXT}

// mime types as browsers declare them on upload
const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// MapContentType resolves a declared content type (MIME string, short tag,
// or file extension) to a canonical ContentType. Unknown input maps to
// Unrecognized.
func MapContentType(declared string) ContentType {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case mimePDF, "pdf", ".pdf":
		return PDF
	case mimeDocx, "docx", ".docx":
		return DOCX
	case mimeText, "txt", ".txt", "text", "plain-text":
		return TXT
	default:
		return Unrecognized
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
