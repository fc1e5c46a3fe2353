// Package server exposes the extraction pipeline over an HTTP JSON API.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
	"github.com/aakashr02/Metaforms-task/internal/export"
	"github.com/aakashr02/Metaforms-task/internal/extract"
	"github.com/aakashr02/Metaforms-task/internal/llm"
	"github.com/aakashr02/Metaforms-task/internal/pipeline"
	"github.com/aakashr02/Metaforms-task/internal/repository"
)

// maxUploadBytes caps multipart memory; larger files spill to disk.
const maxUploadBytes = 32 << 20

type Service struct {
	log       *slog.Logger
	processor *pipeline.Processor
	jobs      repository.ExtractionJobRepository
	export    *export.Service
	llmCfg    common.LLMConfig
}

func NewService(logger *slog.Logger, processor *pipeline.Processor, jobs repository.ExtractionJobRepository, exp *export.Service, llmCfg common.LLMConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{log: logger, processor: processor, jobs: jobs, export: exp, llmCfg: llmCfg}
}

// Routes wires the HTTP surface.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/extract", s.handleExtract)
	mux.HandleFunc("GET /v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /v1/jobs/export", s.handleExportJobs)
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /v1/jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// extractOptions is the JSON request body; the same fields arrive as form
// values on multipart uploads.
type extractOptions struct {
	Text        string   `json:"text"`
	Mode        string   `json:"mode"`
	Schema      string   `json:"schema"`
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	APIKey      string   `json:"api_key"`
}

type extractResponse struct {
	JobID         string          `json:"job_id"`
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data,omitempty"`
	FieldCount    *int            `json:"field_count,omitempty"`
	AvgConfidence *float64        `json:"avg_confidence,omitempty"`
	SchemaValid   *bool           `json:"schema_valid,omitempty"`
	RawResponse   string          `json:"raw_response,omitempty"`
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, err := s.buildRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.processor.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := extractResponse{
		JobID:  res.JobID.String(),
		Status: string(res.Status),
	}
	if res.Outcome.Fallback {
		resp.RawResponse = res.Outcome.RawFallback
	} else {
		pretty, err := res.Outcome.Structured.PrettyJSON()
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Data = pretty
		resp.FieldCount = res.Outcome.Structured.FieldCount
		resp.AvgConfidence = res.Outcome.Structured.AvgConfidence
		resp.SchemaValid = res.Outcome.Structured.SchemaValid
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildRequest assembles a pipeline request from either a multipart upload
// or a JSON body. An uploaded document takes precedence over pasted text.
func (s *Service) buildRequest(r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request
	var opts extractOptions

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return req, common.NewAppError(common.CodeInvalidInput, "parse multipart form", err)
		}
		opts = extractOptions{
			Text:   r.FormValue("text"),
			Mode:   r.FormValue("mode"),
			Schema: r.FormValue("schema"),
			Model:  r.FormValue("model"),
			APIKey: r.FormValue("api_key"),
		}
		if v := r.FormValue("temperature"); v != "" {
			t, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return req, common.NewAppError(common.CodeInvalidInput, "invalid temperature", err)
			}
			t32 := float32(t)
			opts.Temperature = &t32
		}
		if v := r.FormValue("max_tokens"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, common.NewAppError(common.CodeInvalidInput, "invalid max_tokens", err)
			}
			opts.MaxTokens = n
		}

		file, header, err := r.FormFile("document")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return req, common.NewAppError(common.CodeInvalidInput, "read uploaded document", err)
			}
			declared := header.Header.Get("Content-Type")
			contentType := constants.MapContentType(declared)
			if contentType == constants.Unrecognized {
				contentType = constants.MapContentType(filepath.Ext(header.Filename))
			}
			req.Document = &extract.Document{
				Name:        header.Filename,
				ContentType: contentType,
				Data:        data,
			}
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			return req, common.NewAppError(common.CodeInvalidInput, "decode request body", err)
		}
	}

	mode, ok := llm.ParseMode(opts.Mode)
	if !ok {
		return req, common.NewAppError(common.CodeInvalidInput, "unknown mode: "+opts.Mode, common.ErrInvalidInput)
	}

	req.Text = opts.Text
	req.Mode = mode
	req.Schema = opts.Schema
	req.Model = opts.Model
	req.Temperature = opts.Temperature
	req.MaxTokens = opts.MaxTokens

	// Credential resolution order: header, request body, server config.
	req.Credential = r.Header.Get("X-API-Key")
	if req.Credential == "" {
		req.Credential = opts.APIKey
	}
	if req.Credential == "" {
		req.Credential = s.llmCfg.APIKey
	}
	return req, nil
}

type jobJSON struct {
	ID            string          `json:"id"`
	CreatedAt     string          `json:"created_at"`
	FinishedAt    string          `json:"finished_at,omitempty"`
	SourceName    string          `json:"source_name"`
	ContentType   string          `json:"content_type"`
	Mode          string          `json:"mode"`
	Model         string          `json:"model"`
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data,omitempty"`
	FieldCount    *int            `json:"field_count,omitempty"`
	AvgConfidence *float64        `json:"avg_confidence,omitempty"`
	SchemaValid   *bool           `json:"schema_valid,omitempty"`
	RawResponse   string          `json:"raw_response,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}

func toJobJSON(j *repository.ExtractionJob) jobJSON {
	out := jobJSON{
		ID:            j.ID.String(),
		CreatedAt:     j.CreatedAt.Format(timeFormat),
		SourceName:    j.SourceName,
		ContentType:   j.ContentType,
		Mode:          j.Mode,
		Model:         j.Model,
		Status:        string(j.Status),
		FieldCount:    j.FieldCount,
		AvgConfidence: j.AvgConfidence,
		SchemaValid:   j.SchemaValid,
		ErrorMessage:  j.ErrorMessage,
	}
	if j.FinishedAt != nil {
		out.FinishedAt = j.FinishedAt.Format(timeFormat)
	}
	if j.ExtractedJSON != "" {
		out.Data = json.RawMessage(j.ExtractedJSON)
	}
	if j.Status == constants.JobStatusFallback {
		out.RawResponse = j.RawResponse
	}
	return out
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00" // RFC3339Nano

func (s *Service) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, common.NewAppError(common.CodeInvalidInput, "invalid limit", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]jobJSON, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobJSON(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobByID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(job))
}

// handleDownload serves the stored structured result under the canonical
// artifact name, byte-identical to the pretty-printed StructuredResult.
func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobByID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.Status != constants.JobStatusParsed || job.ExtractedJSON == "" {
		s.writeError(w, common.NewAppError(common.CodeNotFound,
			"job has no structured result to download", common.ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="extracted_data.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(job.ExtractedJSON))
}

func (s *Service) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	data, err := s.export.ExportJobsXLSX(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="extraction_jobs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Service) jobByID(r *http.Request) (*repository.ExtractionJob, error) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, "invalid job id", err)
	}
	return s.jobs.GetByID(r.Context(), id)
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("server.request_failed", "error", err)
	} else {
		s.log.Warn("server.request_rejected", "code", common.ErrorCode(err), "error", err)
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    common.ErrorCode(err),
			"message": err.Error(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
