package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
)

// ExtractionJob is one row of pipeline history: a single run of the
// extract -> prompt -> complete -> interpret chain.
type ExtractionJob struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	FinishedAt    *time.Time
	SourceName    string
	ContentType   string
	Mode          string
	Model         string
	Status        constants.JobStatus
	ExtractedJSON string
	RawResponse   string
	FieldCount    *int
	AvgConfidence *float64
	SchemaValid   *bool
	ErrorMessage  string
}

// StartJobParams captures what is known about a run before it executes.
type StartJobParams struct {
	SourceName  string
	ContentType string
	Mode        string
	Model       string
}

// ParsedOutcome carries everything persisted on a successful parse.
type ParsedOutcome struct {
	ExtractedJSON []byte
	RawResponse   string
	FieldCount    *int
	AvgConfidence *float64
	SchemaValid   *bool
}

type ExtractionJobRepository interface {
	Start(ctx context.Context, p StartJobParams) (uuid.UUID, error)
	FinishParsed(ctx context.Context, jobID uuid.UUID, out ParsedOutcome) error
	FinishFallback(ctx context.Context, jobID uuid.UUID, rawResponse string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*ExtractionJob, error)
	List(ctx context.Context, limit int) ([]*ExtractionJob, error)
	Count(ctx context.Context) (int, error)
}

type jobRepository struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionJobRepository(db *DB, logger *slog.Logger) ExtractionJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepository{db: db, log: logger}
}

func (r *jobRepository) Start(ctx context.Context, p StartJobParams) (uuid.UUID, error) {
	id := uuid.New()
	q := r.db.rebind(`INSERT INTO extraction_jobs
		(id, created_at, source_name, content_type, mode, model, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		id.String(), formatTime(time.Now().UTC()),
		p.SourceName, p.ContentType, p.Mode, p.Model,
		string(constants.JobStatusRunning),
	)
	if err != nil {
		r.log.Error("extraction_job start failed", "source", p.SourceName, "err", err)
		return uuid.Nil, err
	}
	r.log.Info("extraction_job started", "job_id", id, "source", p.SourceName, "mode", p.Mode)
	return id, nil
}

func (r *jobRepository) FinishParsed(ctx context.Context, jobID uuid.UUID, out ParsedOutcome) error {
	var schemaValid *int
	if out.SchemaValid != nil {
		v := 0
		if *out.SchemaValid {
			v = 1
		}
		schemaValid = &v
	}
	q := r.db.rebind(`UPDATE extraction_jobs SET
		finished_at = ?, status = ?, extracted_json = ?, raw_response = ?,
		field_count = ?, avg_confidence = ?, schema_valid = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q,
		formatTime(time.Now().UTC()), string(constants.JobStatusParsed),
		string(out.ExtractedJSON), out.RawResponse,
		out.FieldCount, out.AvgConfidence, schemaValid,
		jobID.String(),
	)
	if err != nil {
		r.log.Error("extraction_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extraction_job finished (PARSED)", "job_id", jobID)
	return nil
}

func (r *jobRepository) FinishFallback(ctx context.Context, jobID uuid.UUID, rawResponse string) error {
	q := r.db.rebind(`UPDATE extraction_jobs SET
		finished_at = ?, status = ?, raw_response = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q,
		formatTime(time.Now().UTC()), string(constants.JobStatusFallback),
		rawResponse, jobID.String(),
	)
	if err != nil {
		r.log.Error("extraction_job finish(RAW_FALLBACK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extraction_job finished (RAW_FALLBACK)", "job_id", jobID, "raw_bytes", len(rawResponse))
	return nil
}

func (r *jobRepository) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	q := r.db.rebind(`UPDATE extraction_jobs SET
		finished_at = ?, status = ?, error_message = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q,
		formatTime(time.Now().UTC()), string(constants.JobStatusFailed),
		message, jobID.String(),
	)
	if err != nil {
		r.log.Error("extraction_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extraction_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

const jobColumns = `id, created_at, finished_at, source_name, content_type,
	mode, model, status, extracted_json, raw_response, field_count,
	avg_confidence, schema_valid, error_message`

func (r *jobRepository) GetByID(ctx context.Context, jobID uuid.UUID) (*ExtractionJob, error) {
	q := r.db.rebind(`SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = ?`)
	row := r.db.QueryRowContext(ctx, q, jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, "job not found: "+jobID.String(), common.ErrNotFound)
	}
	if err != nil {
		r.log.Error("extraction_job get failed", "job_id", jobID, "err", err)
		return nil, err
	}
	return job, nil
}

func (r *jobRepository) List(ctx context.Context, limit int) ([]*ExtractionJob, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.rebind(`SELECT ` + jobColumns + ` FROM extraction_jobs
		ORDER BY created_at DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		r.log.Error("extraction_job list failed", "err", err)
		return nil, err
	}
	defer rows.Close()

	var jobs []*ExtractionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extraction_jobs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ExtractionJob, error) {
	var (
		idStr, createdStr                                string
		finishedStr                                      sql.NullString
		sourceName, contentType, mode, model, status     string
		extractedJSON, rawResponse, errorMessage         sql.NullString
		fieldCount, schemaValid                          sql.NullInt64
		avgConfidence                                    sql.NullFloat64
	)
	if err := row.Scan(&idStr, &createdStr, &finishedStr, &sourceName, &contentType,
		&mode, &model, &status, &extractedJSON, &rawResponse, &fieldCount,
		&avgConfidence, &schemaValid, &errorMessage); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(createdStr)
	if err != nil {
		return nil, err
	}

	job := &ExtractionJob{
		ID:            id,
		CreatedAt:     createdAt,
		SourceName:    sourceName,
		ContentType:   contentType,
		Mode:          mode,
		Model:         model,
		Status:        constants.JobStatus(status),
		ExtractedJSON: extractedJSON.String,
		RawResponse:   rawResponse.String,
		ErrorMessage:  errorMessage.String,
	}
	if finishedStr.Valid {
		t, err := parseTime(finishedStr.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	if fieldCount.Valid {
		n := int(fieldCount.Int64)
		job.FieldCount = &n
	}
	if avgConfidence.Valid {
		v := avgConfidence.Float64
		job.AvgConfidence = &v
	}
	if schemaValid.Valid {
		b := schemaValid.Int64 != 0
		job.SchemaValid = &b
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
