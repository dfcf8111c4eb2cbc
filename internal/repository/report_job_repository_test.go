package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

func TestReportJobRepositoryCreateGetUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO completeness_report_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.CompletenessReportJob{Params: models.CompletenessReportParams{Format: models.ReportFormatXLSX}, CreatedBy: "admin-1"}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.Equal(t, models.ReportStatusQueued, job.Status)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow(job.ID, []byte(`{"format":"xlsx","below_percentage":80}`), "QUEUED", 0, nil, "admin-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM completeness_report_jobs WHERE id = $1")).WithArgs(job.ID).WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatXLSX, found.Params.Format)
	assert.Equal(t, 80, found.Params.BelowPercentage)

	status := models.ReportStatusProcessing
	progress := 50
	mock.ExpectExec(regexp.QuoteMeta("UPDATE completeness_report_jobs SET status = $1, progress = $2 WHERE id = $3")).
		WithArgs(status, progress, job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), job.ID, ReportJobUpdate{Status: &status, Progress: &progress}))
	require.NoError(t, mock.ExpectationsWereMet())
}
