package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
)

type registrationService interface {
	Preview(req dto.RegistrationRequest) (*service.RegistrationPreview, error)
	Submit(ctx context.Context, req dto.RegistrationRequest) (*service.RegistrationResult, error)
}

// RegistrationHandler exposes new-student registration.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Preview godoc
// @Summary Preview the checklist a registration would produce
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationRequest true "Registration draft"
// @Success 200 {object} response.Envelope
// @Router /registrations/preview [post]
func (h *RegistrationHandler) Preview(c *gin.Context) {
	var req dto.RegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	preview, err := h.service.Preview(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Submit godoc
// @Summary Register a student with guardians
// @Description On 207 PARTIAL_COMMIT the details list what was committed and what failed.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req dto.RegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, appErrors.ErrPartialCommit) && result != nil {
			response.JSON(c, http.StatusMultiStatus, result, nil, map[string]interface{}{"error": appErrors.FromError(err)})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
