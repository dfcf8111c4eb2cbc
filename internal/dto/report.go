package dto

import "github.com/noah-isme/santri-dokumen-api/internal/models"

// CompletenessReportRequest captures POST /reports/completeness payload.
type CompletenessReportRequest struct {
	Category        string `json:"category"`
	Format          string `json:"format" validate:"omitempty,oneof=csv pdf xlsx"`
	BelowPercentage int    `json:"belowPercentage" validate:"min=0,max=100"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
