package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
	"github.com/noah-isme/santri-dokumen-api/pkg/validation"
)

type reportService interface {
	CreateJob(ctx context.Context, req dto.CompletenessReportRequest, actorID string) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ReportStatusResponse, error)
}

// ReportHandler exposes cohort completeness reports.
type ReportHandler struct {
	service   reportService
	validator *validation.Validator
}

// NewReportHandler constructs handler. service may be nil when reports are disabled.
func NewReportHandler(service reportService, validator *validation.Validator) *ReportHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &ReportHandler{service: service, validator: validator}
}

// Create godoc
// @Summary Enqueue a cohort completeness report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.CompletenessReportRequest true "Report parameters"
// @Success 202 {object} response.Envelope
// @Router /reports/completeness [post]
func (h *ReportHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CompletenessReportRequest
	if !bindJSON(c, &req, "invalid report payload") {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), req, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Cohort report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/completeness/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled"))
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
