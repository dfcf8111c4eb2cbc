package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/pkg/export"
	"github.com/noah-isme/santri-dokumen-api/pkg/storage"
)

type checklistSource interface {
	Detail(ctx context.Context, id string) (*models.StudentDetail, error)
	Completeness(ctx context.Context, id string) (*models.CompletenessResult, error)
	Cohort(ctx context.Context, filter models.StudentFilter) ([]StudentCompleteness, error)
}

// scopedURLer is implemented by stores that sign download links per scope.
type scopedURLer interface {
	SignedURL(scope, ref string) (string, error)
}

// ExportFile is a rendered export served inline.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportResult captures a stored report file.
type ExportResult struct {
	Ref    string
	URL    string
	Format models.ReportFormat
	Rows   int
}

// ExportService renders checklists and cohort reports.
type ExportService struct {
	source checklistSource
	store  storage.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. store may be nil when only
// inline checklist exports are needed.
func NewExportService(source checklistSource, store storage.BlobStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{source: source, store: store, logger: logger, now: time.Now}
}

// Checklist renders one student's checklist in format.
func (s *ExportService) Checklist(ctx context.Context, studentID string, format export.Format) (*ExportFile, error) {
	detail, err := s.source.Detail(ctx, studentID)
	if err != nil {
		return nil, err
	}
	result, err := s.source.Completeness(ctx, studentID)
	if err != nil {
		return nil, err
	}
	body, err := export.Render(format, ChecklistDataset(detail, result, s.now()))
	if err != nil {
		return nil, fmt.Errorf("render checklist: %w", err)
	}
	name := fmt.Sprintf("checklist_%s_%s.%s", sanitizeFilename(detail.NIS), s.now().UTC().Format("20060102"), format)
	return &ExportFile{Filename: name, ContentType: format.ContentType(), Body: body}, nil
}

// ChecklistDataset lays out a completeness result as one row per requirement.
func ChecklistDataset(detail *models.StudentDetail, result *models.CompletenessResult, at time.Time) export.Dataset {
	data := export.Dataset{
		Title: "Checklist Dokumen Santri",
		Notes: []string{
			fmt.Sprintf("%s (NIS %s) - %s", detail.FullName, detail.NIS, detail.Category),
			fmt.Sprintf("Kelengkapan %d%% (%d/%d), dicetak %s", result.Percentage, result.Completed, result.Total, at.Format("02-01-2006")),
		},
		Headers: []string{"No", "Kode", "Dokumen", "Sifat", "Status"},
		Rows:    make([]map[string]string, 0, len(result.Items)),
	}
	for i, item := range result.Items {
		data.Rows = append(data.Rows, map[string]string{
			"No":      strconv.Itoa(i + 1),
			"Kode":    item.Code,
			"Dokumen": item.Name,
			"Sifat":   string(item.Tag),
			"Status":  item.Badge,
		})
	}
	return data
}

// CohortDataset lays out cohort completeness, keeping students under below
// percent when below > 0.
func CohortDataset(rows []StudentCompleteness, params models.CompletenessReportParams, at time.Time) export.Dataset {
	scope := "Semua kategori"
	if params.Category != nil {
		scope = string(*params.Category)
	}
	data := export.Dataset{
		Title:   "Rekap Kelengkapan Dokumen",
		Notes:   []string{fmt.Sprintf("%s, dibuat %s", scope, at.Format("02-01-2006 15:04"))},
		Headers: []string{"NIS", "Nama", "Kategori", "Lengkap", "Total", "Persen", "Belum Valid"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	if params.BelowPercentage > 0 {
		data.Notes = append(data.Notes, fmt.Sprintf("Hanya santri di bawah %d%%", params.BelowPercentage))
	}
	for _, row := range rows {
		if params.BelowPercentage > 0 && row.Result.Percentage >= params.BelowPercentage {
			continue
		}
		outstanding := make([]string, 0)
		for _, item := range row.Result.Items {
			if item.Tag.Counts() && item.Badge != string(models.DocumentValid) {
				outstanding = append(outstanding, item.Code)
			}
		}
		data.Rows = append(data.Rows, map[string]string{
			"NIS":         row.Student.NIS,
			"Nama":        row.Student.FullName,
			"Kategori":    string(row.Student.Category),
			"Lengkap":     strconv.Itoa(row.Result.Completed),
			"Total":       strconv.Itoa(row.Result.Total),
			"Persen":      strconv.Itoa(row.Result.Percentage),
			"Belum Valid": strings.Join(outstanding, ", "),
		})
	}
	return data
}

// GenerateCohort renders the cohort report for job and stores it.
func (s *ExportService) GenerateCohort(ctx context.Context, job *models.CompletenessReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("report storage not configured")
	}
	format, err := export.ParseFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}
	rows, err := s.source.Cohort(ctx, models.StudentFilter{Category: job.Params.Category})
	if err != nil {
		return nil, err
	}
	data := CohortDataset(rows, job.Params, s.now())
	body, err := export.Render(format, data)
	if err != nil {
		return nil, fmt.Errorf("render cohort report: %w", err)
	}

	ref := fmt.Sprintf("reports/%s/kelengkapan_%s.%s", job.ID, s.now().UTC().Format("20060102_150405"), format)
	ref, err = s.store.Put(ctx, ref, bytes.NewReader(body), int64(len(body)), format.ContentType())
	if err != nil {
		return nil, fmt.Errorf("store cohort report: %w", err)
	}

	var url string
	if signer, ok := s.store.(scopedURLer); ok {
		url, err = signer.SignedURL(storage.ScopeReport, ref)
	} else {
		url, err = s.store.PublicURL(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("report url: %w", err)
	}
	return &ExportResult{Ref: ref, URL: url, Format: models.ReportFormat(format), Rows: len(data.Rows)}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
