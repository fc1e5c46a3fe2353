package llm

import "context"

// Mode selects how the extraction prompt is built.
type Mode string

const (
	ModeAutomatic    Mode = "AUTOMATIC"     // model decides the output structure
	ModeSchemaGuided Mode = "SCHEMA_GUIDED" // caller supplies the target JSON shape
)

// ParseMode resolves a user-supplied mode string; empty means automatic.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "automatic", "AUTOMATIC":
		return ModeAutomatic, true
	case "schema", "schema-guided", "SCHEMA_GUIDED":
		return ModeSchemaGuided, true
	default:
		return "", false
	}
}

// CompletionRequest is one call across the completion boundary. The
// credential travels with the request rather than living in process-global
// state, so concurrent requests with different keys cannot trample each
// other.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
	APIKey      string
}

// CompletionClient is the external-collaborator boundary: one prompt in, raw
// completion text out. Implementations do not retry, stream, or batch.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
