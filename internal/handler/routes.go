package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/middleware"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// Handlers groups every API handler mounted under the API prefix.
type Handlers struct {
	Requirements  *RequirementHandler
	Students      *StudentHandler
	Documents     *DocumentHandler
	Registrations *RegistrationHandler
	Reports       *ReportHandler
	Downloads     *DownloadHandler
}

// RegisterRoutes mounts the API on group. Every route except file downloads
// requires a bearer token.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth middleware.TokenValidator, logger *zap.Logger) {
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	student := middleware.StudentScope("id")

	if h.Downloads != nil {
		group.GET("/files/download", h.Downloads.Download)
	}

	api := group.Group("")
	api.Use(middleware.JWT(auth))

	api.POST("/requirements/resolve", h.Requirements.Resolve)

	students := api.Group("/students/:id", student)
	students.GET("", h.Students.Get)
	students.PUT("/profile", staff, middleware.Audit(logger, "student.profile.update"), h.Students.UpdateProfile)
	students.GET("/requirements", h.Students.Requirements)
	students.GET("/completeness", h.Students.Completeness)
	students.GET("/documents", h.Students.Documents)
	students.POST("/documents/:code", middleware.Audit(logger, "document.upload"), h.Documents.Upload)
	students.GET("/checklist/export", h.Students.ExportChecklist)

	api.POST("/uploads/pending/:pendingId/retry", middleware.Audit(logger, "document.upload.retry"), h.Documents.RetryPending)

	documents := api.Group("/documents/:id", staff)
	documents.PATCH("/status", middleware.Audit(logger, "document.verify"), h.Documents.SetStatus)
	documents.DELETE("", middleware.Audit(logger, "document.deactivate"), h.Documents.Deactivate)
	documents.GET("/audit", h.Documents.Audit)

	api.POST("/registrations/preview", h.Registrations.Preview)
	api.POST("/registrations", staff, middleware.Audit(logger, "registration.submit"), h.Registrations.Submit)

	reports := api.Group("/reports/completeness", admin)
	reports.POST("", middleware.Audit(logger, "report.create"), h.Reports.Create)
	reports.GET("/:id", h.Reports.Status)
}
