package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

type documentStore interface {
	Upsert(ctx context.Context, rec *models.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, note *string, actorID string, at time.Time) (*models.DocumentRecord, *models.DocumentAuditEntry, error)
	Deactivate(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context, studentID string) ([]models.DocumentRecord, error)
	ListActiveForStudents(ctx context.Context, studentIDs []string) ([]models.DocumentRecord, error)
	History(ctx context.Context, studentID, code string) ([]models.DocumentRecord, error)
	AuditTrail(ctx context.Context, recordID string) ([]models.DocumentAuditEntry, error)
}

// DocumentService is the document registry: it versions uploads per
// (student, requirement) and records every verification decision.
type DocumentService struct {
	repo    documentStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDocumentService constructs the registry.
func NewDocumentService(repo documentStore, metrics *MetricsService, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Upsert records fileRef as the new active UNVERIFIED document for
// (studentID, code), retiring the previous active record.
func (s *DocumentService) Upsert(ctx context.Context, studentID, code, fileRef string, meta models.DocumentMetadata) (*models.DocumentRecord, error) {
	code = models.NormalizeCode(code)
	if studentID == "" || code == "" || fileRef == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId, code and fileRef are required")
	}
	rec := &models.DocumentRecord{
		StudentID:       studentID,
		RequirementCode: code,
		FileRef:         fileRef,
		FileURL:         meta.FileURL,
		MimeType:        meta.MimeType,
		SizeBytes:       meta.SizeBytes,
		OriginalName:    meta.OriginalName,
		UploadedAt:      s.now().UTC(),
	}
	if meta.UploadedBy != "" {
		uploader := meta.UploadedBy
		rec.UploadedBy = &uploader
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}
	s.logger.Info("document recorded",
		zap.String("student_id", studentID),
		zap.String("code", code),
		zap.String("record_id", rec.ID),
	)
	return rec, nil
}

// SetStatus applies a reviewer decision and appends exactly one audit entry,
// including when the status does not change.
func (s *DocumentService) SetStatus(ctx context.Context, recordID string, status models.DocumentStatus, note, actorID string) (*models.DocumentRecord, error) {
	if !status.IsVerificationTarget() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be VALID, NEEDS_REVISION or INVALID")
	}
	if actorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actor is required")
	}
	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		notePtr = &trimmed
	}
	rec, entry, err := s.repo.UpdateStatus(ctx, recordID, status, notePtr, actorID, s.now().UTC())
	if err != nil {
		return nil, s.mapNotFound(err, "failed to update document status")
	}
	s.metrics.RecordVerification(string(status))
	s.logger.Info("document status changed",
		zap.String("record_id", recordID),
		zap.String("from", string(entry.OldStatus)),
		zap.String("to", string(entry.NewStatus)),
		zap.String("actor_id", actorID),
	)
	return rec, nil
}

// Deactivate soft-deletes an active record. The blob is never removed.
func (s *DocumentService) Deactivate(ctx context.Context, recordID string) error {
	if err := s.repo.Deactivate(ctx, recordID, s.now().UTC()); err != nil {
		return s.mapNotFound(err, "failed to deactivate document")
	}
	return nil
}

// Get returns a record regardless of its active flag.
func (s *DocumentService) Get(ctx context.Context, recordID string) (*models.DocumentRecord, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, s.mapNotFound(err, "failed to load document")
	}
	return rec, nil
}

// ListActive returns the student's active records.
func (s *DocumentService) ListActive(ctx context.Context, studentID string) ([]models.DocumentRecord, error) {
	records, err := s.repo.ListActive(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	if records == nil {
		records = []models.DocumentRecord{}
	}
	return records, nil
}

// ListActiveForStudents groups active records by student id.
func (s *DocumentService) ListActiveForStudents(ctx context.Context, studentIDs []string) (map[string][]models.DocumentRecord, error) {
	records, err := s.repo.ListActiveForStudents(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	grouped := make(map[string][]models.DocumentRecord, len(studentIDs))
	for _, rec := range records {
		grouped[rec.StudentID] = append(grouped[rec.StudentID], rec)
	}
	return grouped, nil
}

// History returns every version uploaded for (studentID, code), newest first.
func (s *DocumentService) History(ctx context.Context, studentID, code string) ([]models.DocumentRecord, error) {
	records, err := s.repo.History(ctx, studentID, models.NormalizeCode(code))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document history")
	}
	if records == nil {
		records = []models.DocumentRecord{}
	}
	return records, nil
}

// AuditTrail returns the verification log of a record, oldest first.
func (s *DocumentService) AuditTrail(ctx context.Context, recordID string) ([]models.DocumentAuditEntry, error) {
	if _, err := s.repo.GetByID(ctx, recordID); err != nil {
		return nil, s.mapNotFound(err, "failed to load document")
	}
	entries, err := s.repo.AuditTrail(ctx, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	if entries == nil {
		entries = []models.DocumentAuditEntry{}
	}
	return entries, nil
}

func (s *DocumentService) mapNotFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
