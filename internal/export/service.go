package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aakashr02/Metaforms-task/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX bytes
// for history exports.
type Service struct {
	jobs   repository.ExtractionJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ExtractionJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) with the most recent
// extraction jobs, newest first.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Created At",
		"Source",
		"Content Type",
		"Mode",
		"Model",
		"Status",
		"Field Count",
		"Avg Confidence",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, j.CreatedAt.Format(time.RFC3339))
		write(2, j.SourceName)
		write(3, j.ContentType)
		write(4, j.Mode)
		write(5, j.Model)
		write(6, string(j.Status))
		if j.FieldCount != nil {
			write(7, *j.FieldCount)
		}
		if j.AvgConfidence != nil {
			// percentage display; the stored value keeps full precision
			write(8, fmt.Sprintf("%.0f%%", *j.AvgConfidence*100))
		}
		write(9, j.ErrorMessage)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.jobs.ok",
		"rows", len(jobs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
