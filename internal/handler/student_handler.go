package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/middleware"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/export"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
	"github.com/noah-isme/santri-dokumen-api/pkg/validation"
)

type studentService interface {
	Detail(ctx context.Context, id string) (*models.StudentDetail, error)
	RequirementsWithSource(ctx context.Context, id string) ([]models.DocumentRequirement, bool, error)
	Completeness(ctx context.Context, id string) (*models.CompletenessResult, error)
	UpdateProfile(ctx context.Context, id string, upd models.StudentProfileUpdate) (*models.StudentDetail, error)
}

type studentDocuments interface {
	ListActive(ctx context.Context, studentID string) ([]models.DocumentRecord, error)
	History(ctx context.Context, studentID, code string) ([]models.DocumentRecord, error)
}

type checklistExporter interface {
	Checklist(ctx context.Context, studentID string, format export.Format) (*service.ExportFile, error)
}

// StudentHandler exposes student profile and checklist endpoints.
type StudentHandler struct {
	students  studentService
	documents studentDocuments
	exporter  checklistExporter
	validator *validation.Validator
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students studentService, documents studentDocuments, exporter checklistExporter, validator *validation.Validator) *StudentHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &StudentHandler{students: students, documents: documents, exporter: exporter, validator: validator}
}

// Get godoc
// @Summary Get student with guardians
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	detail, err := h.students.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateProfile godoc
// @Summary Update resolver-relevant student fields
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 207 {object} response.Envelope "student fields saved, guardian update failed"
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/profile [put]
func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, err)
		return
	}
	upd, err := req.ToUpdate()
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.students.UpdateProfile(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Requirements godoc
// @Summary Resolve required documents for a stored student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/requirements [get]
func (h *StudentHandler) Requirements(c *gin.Context) {
	reqs, cacheHit, err := h.students.RequirementsWithSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, reqs, nil, middleware.ExtractMeta(c))
}

// Completeness godoc
// @Summary Document completeness of a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/completeness [get]
func (h *StudentHandler) Completeness(c *gin.Context) {
	result, err := h.students.Completeness(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Documents godoc
// @Summary List active documents, or the history of one code
// @Tags Documents
// @Produce json
// @Param id path string true "Student ID"
// @Param code query string false "Requirement code; returns every version newest first"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/documents [get]
func (h *StudentHandler) Documents(c *gin.Context) {
	var (
		records []models.DocumentRecord
		err     error
	)
	if code := strings.TrimSpace(c.Query("code")); code != "" {
		records, err = h.documents.History(c.Request.Context(), c.Param("id"), code)
	} else {
		records, err = h.documents.ListActive(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportChecklist godoc
// @Summary Download a student's checklist
// @Tags Students
// @Produce application/octet-stream
// @Param id path string true "Student ID"
// @Param format query string false "csv, pdf or xlsx" default(pdf)
// @Success 200 {file} file
// @Router /students/{id}/checklist/export [get]
func (h *StudentHandler) ExportChecklist(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export not configured"))
		return
	}
	format, err := export.ParseFormat(strings.ToLower(c.DefaultQuery("format", string(export.FormatPDF))))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv, pdf or xlsx"))
		return
	}
	file, err := h.exporter.Checklist(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
