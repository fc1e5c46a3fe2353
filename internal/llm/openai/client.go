package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aakashr02/Metaforms-task/internal/common"
	"github.com/aakashr02/Metaforms-task/internal/llm"
)

// Complete implements llm.CompletionClient over chat/completions. One call,
// no retries; whatever the endpoint reports is surfaced as-is.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", common.NewAppError(common.CodeMissingCredential, "api key is required", nil)
	}

	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"model", req.Model,
		"temp", req.Temperature,
		"max_tokens", req.MaxTokens,
		"prompt_chars", len(req.Prompt),
	)

	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": req.Prompt},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		msg := "completion request failed"
		if len(raw) > 0 {
			msg = string(raw)
		}
		return "", common.NewAppError(common.CodeCompletion, msg, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeCompletion, "decode completion response", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.complete.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeCompletion, "no choices in completion response", nil)
	}

	content := cc.Choices[0].Message.Content
	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"content_chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
