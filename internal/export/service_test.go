package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/aakashr02/Metaforms-task/constants"
	"github.com/aakashr02/Metaforms-task/internal/repository"
)

type fakeJobs struct {
	jobs []*repository.ExtractionJob
	err  error
}

func (f *fakeJobs) Start(context.Context, repository.StartJobParams) (uuid.UUID, error) {
	return uuid.Nil, errors.New("not implemented")
}
func (f *fakeJobs) FinishParsed(context.Context, uuid.UUID, repository.ParsedOutcome) error {
	return errors.New("not implemented")
}
func (f *fakeJobs) FinishFallback(context.Context, uuid.UUID, string) error {
	return errors.New("not implemented")
}
func (f *fakeJobs) FinishFailure(context.Context, uuid.UUID, string) error {
	return errors.New("not implemented")
}
func (f *fakeJobs) GetByID(context.Context, uuid.UUID) (*repository.ExtractionJob, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeJobs) List(context.Context, int) ([]*repository.ExtractionJob, error) {
	return f.jobs, f.err
}
func (f *fakeJobs) Count(context.Context) (int, error) {
	return len(f.jobs), nil
}

func TestExportJobsXLSX(t *testing.T) {
	fields := 3
	avg := 0.8
	created := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	svc := NewService(&fakeJobs{jobs: []*repository.ExtractionJob{
		{
			ID:            uuid.New(),
			CreatedAt:     created,
			SourceName:    "invoice.pdf",
			ContentType:   "pdf",
			Mode:          "AUTOMATIC",
			Model:         constants.ModelGPT4Turbo,
			Status:        constants.JobStatusParsed,
			FieldCount:    &fields,
			AvgConfidence: &avg,
		},
		{
			ID:           uuid.New(),
			CreatedAt:    created.Add(-time.Hour),
			SourceName:   "pasted-text",
			ContentType:  "plain-text",
			Mode:         "AUTOMATIC",
			Model:        constants.ModelGPT35,
			Status:       constants.JobStatusFailed,
			ErrorMessage: "COMPLETION_ERROR: boom",
		},
	}}, nil)

	out, err := svc.ExportJobsXLSX(context.Background(), 10)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}

	wantHeaders := []string{
		"Created At", "Source", "Content Type", "Mode", "Model",
		"Status", "Field Count", "Avg Confidence", "Error",
	}
	for i, h := range wantHeaders {
		if i >= len(rows[0]) || rows[0][i] != h {
			t.Errorf("header[%d] = %v, want %q", i, rows[0], h)
			break
		}
	}

	first := rows[1]
	if first[1] != "invoice.pdf" || first[5] != "PARSED" {
		t.Errorf("row 1 = %v", first)
	}
	if first[6] != "3" {
		t.Errorf("field count cell = %q, want \"3\"", first[6])
	}
	if first[7] != "80%" {
		t.Errorf("avg confidence cell = %q, want \"80%%\"", first[7])
	}

	second := rows[2]
	if second[5] != "FAILED" {
		t.Errorf("row 2 status = %q", second[5])
	}
	if len(second) < 9 || second[8] != "COMPLETION_ERROR: boom" {
		t.Errorf("row 2 error = %v", second)
	}
}

func TestExportJobsXLSXEmptyHistory(t *testing.T) {
	svc := NewService(&fakeJobs{}, nil)

	out, err := svc.ExportJobsXLSX(context.Background(), 10)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want header only", len(rows))
	}
}

func TestExportJobsXLSXListError(t *testing.T) {
	svc := NewService(&fakeJobs{err: errors.New("db down")}, nil)
	if _, err := svc.ExportJobsXLSX(context.Background(), 10); err == nil {
		t.Fatalf("expected error when history query fails")
	}
}
