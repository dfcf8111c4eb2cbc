package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
	"github.com/noah-isme/santri-dokumen-api/pkg/validation"
)

// multipartOverhead is headroom for form boundaries and fields around the file.
const multipartOverhead = 1 << 20

type documentUploader interface {
	Submit(ctx context.Context, studentID, code string, file service.UploadFile, actorID string) (*models.DocumentRecord, error)
	Retry(ctx context.Context, pendingID string, actor *models.JWTClaims) (*models.DocumentRecord, error)
}

type documentReviewer interface {
	SetStatus(ctx context.Context, recordID string, status models.DocumentStatus, note, actorID string) (*models.DocumentRecord, error)
	Deactivate(ctx context.Context, recordID string) error
	AuditTrail(ctx context.Context, recordID string) ([]models.DocumentAuditEntry, error)
}

// DocumentHandler exposes upload and verification endpoints.
type DocumentHandler struct {
	uploads   documentUploader
	documents documentReviewer
	validator *validation.Validator
	maxBytes  int64
}

// NewDocumentHandler constructs the handler. maxBytes bounds the request body.
func NewDocumentHandler(uploads documentUploader, documents documentReviewer, validator *validation.Validator, maxBytes int64) *DocumentHandler {
	if validator == nil {
		validator = validation.New()
	}
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	return &DocumentHandler{uploads: uploads, documents: documents, validator: validator, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a document for a requirement
// @Description Accepts PDF, JPG or PNG up to the configured limit. A 503 PERSISTENCE_FAILED response carries details.pendingId for the retry endpoint.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param code path string true "Requirement code"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/documents/{code} [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.WithDetails(appErrors.ErrFileTooLarge, "maxBytes", h.maxBytes))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field 'file' is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read uploaded file"))
		return
	}
	defer file.Close()

	record, err := h.uploads.Submit(c.Request.Context(), c.Param("id"), c.Param("code"), service.UploadFile{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	}, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// RetryPending godoc
// @Summary Retry the metadata write of a stored upload
// @Tags Documents
// @Produce json
// @Param pendingId path string true "Pending upload ID"
// @Success 201 {object} response.Envelope
// @Router /uploads/pending/{pendingId}/retry [post]
func (h *DocumentHandler) RetryPending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	record, err := h.uploads.Retry(c.Request.Context(), c.Param("pendingId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// SetStatus godoc
// @Summary Record a verification decision
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document record ID"
// @Param payload body dto.SetStatusRequest true "VALID, NEEDS_REVISION or INVALID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/status [patch]
func (h *DocumentHandler) SetStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SetStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, err)
		return
	}
	status, known := models.ParseDocumentStatus(req.Status)
	if !known {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "status", req.Status))
		return
	}
	record, err := h.documents.SetStatus(c.Request.Context(), c.Param("id"), status, req.Note, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Deactivate godoc
// @Summary Soft delete a document record
// @Tags Documents
// @Param id path string true "Document record ID"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Deactivate(c *gin.Context) {
	if err := h.documents.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Audit godoc
// @Summary Verification audit trail of a record
// @Tags Documents
// @Produce json
// @Param id path string true "Document record ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/audit [get]
func (h *DocumentHandler) Audit(c *gin.Context) {
	entries, err := h.documents.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
