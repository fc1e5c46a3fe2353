// Package pipeline runs one extraction request end to end:
// validate -> extract text -> build prompt -> complete -> interpret,
// recording the run as an extraction job when a store is configured.
//
// Each run is independent and synchronous; a stage fully completes or fails
// before the next begins, and there are no retries from a failed state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
	"github.com/aakashr02/Metaforms-task/internal/extract"
	"github.com/aakashr02/Metaforms-task/internal/interpret"
	"github.com/aakashr02/Metaforms-task/internal/llm"
	"github.com/aakashr02/Metaforms-task/internal/repository"
)

// Request is one user action. Document and Text are mutually available; the
// document wins when both are present.
type Request struct {
	Document *extract.Document
	Text     string

	Mode   llm.Mode
	Schema string

	Model       string
	Temperature *float32 // nil -> default 0.3
	MaxTokens   int      // 0 -> default 1500
	Credential  string
}

// Result is the terminal outcome of a run that reached interpretation.
type Result struct {
	JobID       uuid.UUID
	Status      constants.JobStatus
	Outcome     interpret.Outcome
	RawResponse string
	Extraction  extract.TextExtractionResult
}

type Processor struct {
	log       *slog.Logger
	extractor extract.TextExtractor
	client    llm.CompletionClient
	jobs      repository.ExtractionJobRepository // optional; nil skips persistence
}

func NewProcessor(logger *slog.Logger, ex extract.TextExtractor, client llm.CompletionClient, jobs repository.ExtractionJobRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{log: logger, extractor: ex, client: client, jobs: jobs}
}

// Run executes the whole pipeline for one request. Any error before
// interpretation aborts the run; an unparseable completion is NOT an error,
// it terminates as a raw-text fallback.
func (p *Processor) Run(ctx context.Context, req Request) (Result, error) {
	// Fail fast, before any extraction or completion work.
	if err := validate(&req); err != nil {
		return Result{}, err
	}

	jobID, err := p.startJob(ctx, req)
	if err != nil {
		return Result{}, err
	}

	res := Result{JobID: jobID, Status: constants.JobStatusFailed}

	// Stage 1: text. Document takes precedence over pasted text.
	text := req.Text
	if req.Document != nil {
		ext, err := p.extractor.Extract(ctx, *req.Document)
		if err != nil {
			p.failJob(ctx, jobID, err)
			return res, err
		}
		res.Extraction = ext
		text = ext.Text
	}

	// Stage 2: prompt.
	prompt, err := llm.BuildPrompt(text, req.Mode, req.Schema)
	if err != nil {
		p.failJob(ctx, jobID, err)
		return res, err
	}
	p.log.Info("pipeline.prompt.built", "job_id", jobID, "mode", req.Mode, "prompt_chars", len(prompt))

	// Stage 3: completion. Blocks until the collaborator returns or fails.
	raw, err := p.client.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       req.Model,
		Temperature: *req.Temperature,
		MaxTokens:   req.MaxTokens,
		APIKey:      req.Credential,
	})
	if err != nil {
		p.failJob(ctx, jobID, err)
		return res, err
	}
	res.RawResponse = raw

	// Stage 4: interpretation. Never errors past this point.
	outcome := interpret.Interpret(raw)
	res.Outcome = outcome

	if outcome.Fallback {
		res.Status = constants.JobStatusFallback
		p.log.Warn("pipeline.interpret.fallback", "job_id", jobID, "raw_bytes", len(raw))
		if p.jobs != nil {
			if err := p.jobs.FinishFallback(ctx, jobID, raw); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	// Advisory schema check; a mismatch is recorded, not fatal.
	if req.Mode == llm.ModeSchemaGuided {
		valid := true
		pretty, err := outcome.Structured.PrettyJSON()
		if err == nil {
			if verr := llm.ValidateAgainstSchema(req.Schema, pretty); verr != nil {
				valid = false
				p.log.Warn("pipeline.schema.mismatch", "job_id", jobID, "error", verr)
			}
		}
		outcome.Structured.SchemaValid = &valid
	}

	res.Status = constants.JobStatusParsed
	p.log.Info("pipeline.interpret.ok",
		"job_id", jobID,
		"field_count", derefInt(outcome.Structured.FieldCount),
		"avg_confidence", derefFloat(outcome.Structured.AvgConfidence),
	)

	if p.jobs != nil {
		pretty, err := outcome.Structured.PrettyJSON()
		if err != nil {
			return res, fmt.Errorf("serialize structured result: %w", err)
		}
		if err := p.jobs.FinishParsed(ctx, jobID, repository.ParsedOutcome{
			ExtractedJSON: pretty,
			RawResponse:   raw,
			FieldCount:    outcome.Structured.FieldCount,
			AvgConfidence: outcome.Structured.AvgConfidence,
			SchemaValid:   outcome.Structured.SchemaValid,
		}); err != nil {
			return res, err
		}
	}
	return res, nil
}

// validate enforces the caller contract and applies defaults. Credential
// presence is checked first: a missing key must short-circuit before any
// extraction happens.
func validate(req *Request) error {
	if strings.TrimSpace(req.Credential) == "" {
		return common.NewAppError(common.CodeMissingCredential, "api key is required", nil)
	}
	if req.Document == nil && req.Text == "" {
		return common.NewAppError(common.CodeMissingInput, "upload a document or paste text", nil)
	}

	if req.Mode == "" {
		req.Mode = llm.ModeAutomatic
	}
	if req.Mode == llm.ModeSchemaGuided {
		if strings.TrimSpace(req.Schema) == "" {
			return common.NewAppError(common.CodeInvalidInput,
				"schema is required in schema-guided mode", common.ErrInvalidInput)
		}
		if _, err := llm.CompileSchema(req.Schema); err != nil {
			return common.NewAppError(common.CodeInvalidInput, "invalid schema", err)
		}
	}

	if req.Model == "" {
		req.Model = constants.ModelGPT4Turbo
	}
	if !constants.IsAllowedModel(req.Model) {
		return common.NewAppError(common.CodeInvalidInput,
			"model must be one of: "+strings.Join(constants.AllowedModels, ", "), common.ErrInvalidInput)
	}

	if req.Temperature == nil {
		t := constants.DefaultTemperature
		req.Temperature = &t
	}
	if *req.Temperature < constants.MinTemperature || *req.Temperature > constants.MaxTemperature {
		return common.NewAppError(common.CodeInvalidInput, "temperature must be in [0,1]", common.ErrInvalidInput)
	}

	if req.MaxTokens == 0 {
		req.MaxTokens = constants.DefaultMaxTokens
	}
	if req.MaxTokens < constants.MinMaxTokens || req.MaxTokens > constants.MaxMaxTokens {
		return common.NewAppError(common.CodeInvalidInput, "max_tokens must be in [256,4000]", common.ErrInvalidInput)
	}
	return nil
}

func (p *Processor) startJob(ctx context.Context, req Request) (uuid.UUID, error) {
	if p.jobs == nil {
		return uuid.New(), nil
	}
	params := repository.StartJobParams{
		Mode:  string(req.Mode),
		Model: req.Model,
	}
	if req.Document != nil {
		params.SourceName = req.Document.Name
		params.ContentType = string(req.Document.ContentType)
	} else {
		params.SourceName = "pasted-text"
		params.ContentType = string(constants.TXT)
	}
	return p.jobs.Start(ctx, params)
}

func (p *Processor) failJob(ctx context.Context, jobID uuid.UUID, cause error) {
	p.log.Error("pipeline.failed", "job_id", jobID, "error", cause)
	if p.jobs == nil {
		return
	}
	if err := p.jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		p.log.Error("pipeline.fail_record_error", "job_id", jobID, "error", err)
	}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
