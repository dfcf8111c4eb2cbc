package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
)

type profileResolver interface {
	Resolve(profile models.StudentProfile) []models.DocumentRequirement
}

// RequirementHandler resolves checklists for ad-hoc profiles.
type RequirementHandler struct {
	resolver profileResolver
}

// NewRequirementHandler constructs the handler.
func NewRequirementHandler(resolver profileResolver) *RequirementHandler {
	return &RequirementHandler{resolver: resolver}
}

// Resolve godoc
// @Summary Resolve required documents for a profile
// @Description Unknown labels and malformed dates never fail; they fall back to the general category or count as not provided.
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body dto.ProfileRequest true "Student profile"
// @Success 200 {object} response.Envelope
// @Router /requirements/resolve [post]
func (h *RequirementHandler) Resolve(c *gin.Context) {
	var req dto.ProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile := req.ToProfile()
	response.JSON(c, http.StatusOK, dto.RequirementsResponse{
		Profile:      profile,
		Requirements: h.resolver.Resolve(profile),
	}, nil)
}
