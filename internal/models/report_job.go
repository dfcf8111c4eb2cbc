package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// CompletenessReportJob tracks one asynchronous cohort completeness report.
type CompletenessReportJob struct {
	ID           string                   `db:"id" json:"id"`
	Params       CompletenessReportParams `db:"params" json:"params"`
	Status       ReportStatus             `db:"status" json:"status"`
	Progress     int                      `db:"progress" json:"progress"`
	ResultURL    *string                  `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string                   `db:"created_by" json:"created_by"`
	CreatedAt    time.Time                `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time               `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string                  `db:"error_message" json:"error_message,omitempty"`
}

// CompletenessReportParams is persisted as JSONB.
type CompletenessReportParams struct {
	Category *StudentCategory `json:"category,omitempty"`
	Format   ReportFormat     `json:"format"`
	// BelowPercentage keeps only students under the threshold when > 0.
	BelowPercentage int `json:"below_percentage,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p CompletenessReportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *CompletenessReportParams) Scan(value interface{}) error {
	if value == nil {
		*p = CompletenessReportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for CompletenessReportParams", value)
	}
	if len(data) == 0 {
		*p = CompletenessReportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report params: %w", err)
	}
	return nil
}
