package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/santri-dokumen-api/internal/middleware"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext aborts with 401 when no caller is attached.
func actorFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil || strings.TrimSpace(claims.UserID) == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
