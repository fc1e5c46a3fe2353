package repository

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/common"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "jobs.db")
	db, err := Open(context.Background(), Config{DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { Close(db, nil) })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startJob(t *testing.T, repo ExtractionJobRepository) uuid.UUID {
	t.Helper()
	id, err := repo.Start(context.Background(), StartJobParams{
		SourceName:  "invoice.pdf",
		ContentType: "pdf",
		Mode:        "AUTOMATIC",
		Model:       constants.ModelGPT4Turbo,
	})
	if err != nil {
		t.Fatalf("start job: %v", err)
	}
	return id
}

func TestStartAndGetByID(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	id := startJob(t, repo)

	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.ID != id {
		t.Errorf("id = %v, want %v", job.ID, id)
	}
	if job.Status != constants.JobStatusRunning {
		t.Errorf("status = %q, want RUNNING", job.Status)
	}
	if job.SourceName != "invoice.pdf" || job.Mode != "AUTOMATIC" {
		t.Errorf("job = %+v", job)
	}
	if job.FinishedAt != nil {
		t.Errorf("finished_at must be nil for a running job")
	}
	if time.Since(job.CreatedAt) > time.Minute {
		t.Errorf("created_at = %v, not recent", job.CreatedAt)
	}
}

func TestGetByIDUnknown(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	if code := common.ErrorCode(err); code != common.CodeNotFound {
		t.Errorf("code = %q, want %q", code, common.CodeNotFound)
	}
}

func TestFinishParsedRoundTrip(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	id := startJob(t, repo)

	fields := 3
	avg := 0.8
	valid := true
	err := repo.FinishParsed(context.Background(), id, ParsedOutcome{
		ExtractedJSON: []byte(`{"name": "Alice"}`),
		RawResponse:   `{"name":"Alice"}`,
		FieldCount:    &fields,
		AvgConfidence: &avg,
		SchemaValid:   &valid,
	})
	if err != nil {
		t.Fatalf("finish parsed: %v", err)
	}

	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != constants.JobStatusParsed {
		t.Errorf("status = %q, want PARSED", job.Status)
	}
	if job.ExtractedJSON != `{"name": "Alice"}` {
		t.Errorf("extracted_json = %q", job.ExtractedJSON)
	}
	if job.FieldCount == nil || *job.FieldCount != 3 {
		t.Errorf("field_count = %v, want 3", job.FieldCount)
	}
	if job.AvgConfidence == nil || math.Abs(*job.AvgConfidence-0.8) > 1e-9 {
		t.Errorf("avg_confidence = %v, want 0.8", job.AvgConfidence)
	}
	if job.SchemaValid == nil || !*job.SchemaValid {
		t.Errorf("schema_valid = %v, want true", job.SchemaValid)
	}
	if job.FinishedAt == nil {
		t.Errorf("finished_at must be set")
	}
}

func TestFinishParsedNullStats(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	id := startJob(t, repo)

	err := repo.FinishParsed(context.Background(), id, ParsedOutcome{
		ExtractedJSON: []byte(`[1, 2]`),
		RawResponse:   `[1,2]`,
	})
	if err != nil {
		t.Fatalf("finish parsed: %v", err)
	}

	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.FieldCount != nil || job.AvgConfidence != nil || job.SchemaValid != nil {
		t.Errorf("stats must stay null when absent: %+v", job)
	}
}

func TestFinishFallbackRoundTrip(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	id := startJob(t, repo)

	raw := `Sure, here's your JSON: {"name": "Alice"}`
	if err := repo.FinishFallback(context.Background(), id, raw); err != nil {
		t.Fatalf("finish fallback: %v", err)
	}

	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != constants.JobStatusFallback {
		t.Errorf("status = %q, want RAW_FALLBACK", job.Status)
	}
	if job.RawResponse != raw {
		t.Errorf("raw_response = %q, want completion text unmodified", job.RawResponse)
	}
	if job.ExtractedJSON != "" {
		t.Errorf("extracted_json must stay empty on fallback")
	}
}

func TestFinishFailureRoundTrip(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	id := startJob(t, repo)

	if err := repo.FinishFailure(context.Background(), id, "COMPLETION_ERROR: boom"); err != nil {
		t.Fatalf("finish failure: %v", err)
	}

	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != constants.JobStatusFailed {
		t.Errorf("status = %q, want FAILED", job.Status)
	}
	if job.ErrorMessage != "COMPLETION_ERROR: boom" {
		t.Errorf("error_message = %q", job.ErrorMessage)
	}
}

func TestListAndCount(t *testing.T) {
	repo := NewExtractionJobRepository(testDB(t), nil)
	for i := 0; i < 5; i++ {
		startJob(t, repo)
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}

	jobs, err := repo.List(context.Background(), 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("list len = %d, want 3", len(jobs))
	}

	all, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("list default len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].CreatedAt.Before(all[i].CreatedAt) {
			t.Errorf("list must be ordered newest first")
		}
	}
}

func TestRebindPostgresPlaceholders(t *testing.T) {
	db := &DB{Dialect: DialectPostgres}
	got := db.rebind(`UPDATE t SET a = ?, b = ? WHERE id = ?`)
	want := `UPDATE t SET a = $1, b = $2 WHERE id = $3`
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	db = &DB{Dialect: DialectSQLite}
	q := `SELECT * FROM t WHERE id = ?`
	if got := db.rebind(q); got != q {
		t.Errorf("sqlite rebind must be a no-op, got %q", got)
	}
}
