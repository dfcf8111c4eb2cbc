package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/storage"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured.
const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024

var acceptedMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/pjpeg":     ".jpg",
	"image/png":       ".png",
}

var acceptedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type requirementSource interface {
	Requirements(ctx context.Context, studentID string) ([]models.DocumentRequirement, error)
}

type documentRegistry interface {
	Upsert(ctx context.Context, studentID, code, fileRef string, meta models.DocumentMetadata) (*models.DocumentRecord, error)
}

// UploadFile is a user-supplied file awaiting validation.
type UploadFile struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

// PendingUpload is a stored blob whose metadata write failed.
type PendingUpload struct {
	ID        string
	StudentID string
	Code      string
	FileRef   string
	Meta      models.DocumentMetadata
	CreatedAt time.Time
}

// UploadConfig bounds uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
}

// UploadService validates files, stores them and records them in the registry.
type UploadService struct {
	requirements requirementSource
	registry     documentRegistry
	store        storage.BlobStore
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          UploadConfig
	now          func() time.Time

	mu      sync.Mutex
	pending map[string]PendingUpload
}

// NewUploadService constructs the upload orchestrator.
func NewUploadService(requirements requirementSource, registry documentRegistry, store storage.BlobStore, metrics *MetricsService, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = DefaultMaxUploadBytes
	}
	return &UploadService{
		requirements: requirements,
		registry:     registry,
		store:        store,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
		pending:      make(map[string]PendingUpload),
	}
}

// Submit validates file, writes it to storage and records it as the active
// document for (studentID, code). Storage is never contacted for an invalid file.
func (s *UploadService) Submit(ctx context.Context, studentID, code string, file UploadFile, actorID string) (*models.DocumentRecord, error) {
	code = models.NormalizeCode(code)
	contentType, ext, err := s.validate(file)
	if err != nil {
		s.metrics.RecordUpload(code, UploadResultRejected, 0)
		return nil, err
	}

	reqs, err := s.requirements.Requirements(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !requirement.Contains(reqs, code) {
		s.metrics.RecordUpload(code, UploadResultRejected, 0)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document %s is not required for this student", code))
	}

	// The client may go away mid-upload; the blob write and metadata insert
	// still complete so the caller can find the result on the next read.
	workCtx := context.WithoutCancel(ctx)

	path := s.objectPath(studentID, code, ext)
	ref, err := s.store.Put(workCtx, path, file.Content, file.Size, contentType)
	if err != nil {
		s.metrics.RecordUpload(code, UploadResultStorageError, 0)
		s.logger.Warn("document blob write failed", zap.String("student_id", studentID), zap.String("code", code), zap.Error(err))
		if errors.Is(err, storage.ErrInvalidPath) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document path")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	meta := models.DocumentMetadata{
		MimeType:     contentType,
		SizeBytes:    file.Size,
		OriginalName: filepath.Base(file.Filename),
		UploadedBy:   actorID,
	}
	if url, urlErr := s.store.PublicURL(ref); urlErr == nil {
		meta.FileURL = url
	} else {
		s.logger.Debug("no public url for stored document", zap.String("ref", ref), zap.Error(urlErr))
	}

	rec, err := s.registry.Upsert(workCtx, studentID, code, ref, meta)
	if err != nil {
		return nil, s.park(studentID, code, ref, meta, err)
	}
	s.metrics.RecordUpload(code, UploadResultStored, file.Size)
	return rec, nil
}

// Retry re-attempts only the metadata write of a pending upload, reusing its
// stored blob. It is never invoked automatically.
func (s *UploadService) Retry(ctx context.Context, pendingID string, actor *models.JWTClaims) (*models.DocumentRecord, error) {
	s.mu.Lock()
	p, ok := s.pending[pendingID]
	s.mu.Unlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pending upload not found")
	}
	if actor != nil && !actor.CanAccessStudent(p.StudentID) {
		return nil, appErrors.ErrForbidden
	}

	rec, err := s.registry.Upsert(ctx, p.StudentID, p.Code, p.FileRef, p.Meta)
	if err != nil {
		s.logger.Warn("pending upload retry failed", zap.String("pending_id", pendingID), zap.Error(err))
		return nil, persistenceError(err, pendingID)
	}

	s.mu.Lock()
	delete(s.pending, pendingID)
	remaining := len(s.pending)
	s.mu.Unlock()
	s.metrics.SetPendingUploads(remaining)
	s.metrics.RecordUpload(p.Code, UploadResultRetried, p.Meta.SizeBytes)
	return rec, nil
}

// Pending returns a snapshot of one pending upload.
func (s *UploadService) Pending(pendingID string) (PendingUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[pendingID]
	return p, ok
}

func (s *UploadService) park(studentID, code, ref string, meta models.DocumentMetadata, cause error) error {
	p := PendingUpload{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Code:      code,
		FileRef:   ref,
		Meta:      meta,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.pending[p.ID] = p
	count := len(s.pending)
	s.mu.Unlock()

	s.metrics.SetPendingUploads(count)
	s.metrics.RecordUpload(code, UploadResultPersistFailed, 0)
	s.logger.Error("document stored but not recorded",
		zap.String("pending_id", p.ID),
		zap.String("student_id", studentID),
		zap.String("code", code),
		zap.String("file_ref", ref),
		zap.Error(cause),
	)
	return persistenceError(cause, p.ID)
}

func persistenceError(cause error, pendingID string) error {
	wrapped := appErrors.Wrap(cause, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, appErrors.ErrPersistenceFailed.Message)
	return appErrors.WithDetails(wrapped, "pendingId", pendingID)
}

// validate returns the content type to store and the file extension to use.
func (s *UploadService) validate(file UploadFile) (string, string, error) {
	if file.Content == nil || file.Size <= 0 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(file.MimeType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(file.Filename))

	var contentType, storedExt string
	if byMime, ok := acceptedMimeTypes[mime]; ok {
		contentType = mime
		storedExt = byMime
		if _, extOK := acceptedExtensions[ext]; extOK {
			storedExt = ext
		}
	} else if byExt, ok := acceptedExtensions[ext]; ok {
		contentType = byExt
		storedExt = ext
	} else {
		return "", "", appErrors.ErrInvalidFileType
	}
	if contentType == "image/jpg" || contentType == "image/pjpeg" {
		contentType = "image/jpeg"
	}

	if file.Size > s.cfg.MaxFileSizeBytes {
		return "", "", appErrors.WithDetails(appErrors.ErrFileTooLarge, "maxBytes", s.cfg.MaxFileSizeBytes)
	}
	return contentType, storedExt, nil
}

func (s *UploadService) objectPath(studentID, code, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("santri/%s/%s/%d-%s%s", studentID, code, s.now().UnixMilli(), random, ext)
}
