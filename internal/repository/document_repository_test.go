package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

var documentCols = []string{"id", "student_id", "requirement_code", "file_ref", "file_url", "mime_type", "size_bytes", "original_name",
	"status", "note", "verified_by", "verified_at", "uploaded_by", "uploaded_at", "active", "deactivated_at"}

func documentRow(rows *sqlmock.Rows, id, code string, status models.DocumentStatus, active bool) *sqlmock.Rows {
	return rows.AddRow(id, "s-1", code, "santri/s-1/"+code+"/1-a.pdf", "", "application/pdf", 1024, "a.pdf",
		string(status), nil, nil, nil, nil, time.Now(), active, nil)
}

func TestDocumentRepositoryUpsertRetiresPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("s-1|PAS_FOTO").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = FALSE")).
		WithArgs("s-1", "PAS_FOTO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := &models.DocumentRecord{StudentID: "s-1", RequirementCode: "PAS_FOTO", FileRef: "santri/s-1/PAS_FOTO/1-a.png", MimeType: "image/png", SizeBytes: 10}
	require.NoError(t, NewDocumentRepository(db).Upsert(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Active)
	assert.Equal(t, models.DocumentUnverified, rec.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_records")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := NewDocumentRepository(db).Upsert(context.Background(), &models.DocumentRecord{StudentID: "s-1", RequirementCode: "SKTM"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateStatusAppendsAudit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	note := "foto buram"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_records WHERE id = $1 AND active FOR UPDATE")).
		WithArgs("doc-1").
		WillReturnRows(documentRow(sqlmock.NewRows(documentCols), "doc-1", "PAS_FOTO", models.DocumentUnverified, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET status = $2")).
		WithArgs("doc-1", models.DocumentNeedsRevision, note, "staff-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_audit_log")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec, entry, err := NewDocumentRepository(db).UpdateStatus(context.Background(), "doc-1", models.DocumentNeedsRevision, &note, "staff-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.DocumentNeedsRevision, rec.Status)
	assert.Equal(t, models.DocumentUnverified, entry.OldStatus)
	assert.Equal(t, models.DocumentNeedsRevision, entry.NewStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateStatusInactive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("doc-9").WillReturnRows(sqlmock.NewRows(documentCols))
	mock.ExpectRollback()

	_, _, err := NewDocumentRepository(db).UpdateStatus(context.Background(), "doc-9", models.DocumentValid, nil, "a", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = FALSE, deactivated_at = $2 WHERE id = $1 AND active")).
		WithArgs("doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = FALSE")).
		WithArgs("doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDocumentRepository(db)
	require.NoError(t, repo.Deactivate(context.Background(), "doc-1", time.Now()))
	require.ErrorIs(t, repo.Deactivate(context.Background(), "doc-1", time.Now()), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND active ORDER BY requirement_code")).
		WithArgs("s-1").
		WillReturnRows(documentRow(sqlmock.NewRows(documentCols), "doc-1", "PAS_FOTO", models.DocumentValid, true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND requirement_code = $2 ORDER BY uploaded_at DESC")).
		WithArgs("s-1", "PAS_FOTO").
		WillReturnRows(documentRow(documentRow(sqlmock.NewRows(documentCols), "doc-2", "PAS_FOTO", models.DocumentUnverified, true), "doc-1", "PAS_FOTO", models.DocumentValid, false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_audit_log WHERE record_id = $1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "record_id", "old_status", "new_status", "note", "actor_id", "created_at"}).
			AddRow("a-1", "doc-1", "UNVERIFIED", "VALID", nil, "staff-1", time.Now()))

	repo := NewDocumentRepository(db)
	active, err := repo.ListActive(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, active, 1)

	history, err := repo.History(context.Background(), "s-1", "PAS_FOTO")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].Active)

	trail, err := repo.AuditTrail(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.DocumentValid, trail[0].NewStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMalformedIDIsMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	invalid := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "doc-x"`}
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_records WHERE id = $1")).WithArgs("doc-x").WillReturnError(invalid)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("doc-x").WillReturnError(invalid)
	mock.ExpectRollback()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = FALSE")).WithArgs("doc-x", sqlmock.AnyArg()).WillReturnError(invalid)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND active")).WithArgs("s-x").WillReturnError(invalid)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND requirement_code = $2")).WithArgs("s-x", "SKTM").WillReturnError(invalid)
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_audit_log WHERE record_id = $1")).WithArgs("doc-x").WillReturnError(invalid)

	ctx := context.Background()
	repo := NewDocumentRepository(db)
	_, err := repo.GetByID(ctx, "doc-x")
	require.ErrorIs(t, err, sql.ErrNoRows)
	_, _, err = repo.UpdateStatus(ctx, "doc-x", models.DocumentValid, nil, "staff-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.ErrorIs(t, repo.Deactivate(ctx, "doc-x", time.Now()), sql.ErrNoRows)

	active, err := repo.ListActive(ctx, "s-x")
	require.NoError(t, err)
	assert.Empty(t, active)
	history, err := repo.History(ctx, "s-x", "SKTM")
	require.NoError(t, err)
	assert.Empty(t, history)
	audit, err := repo.AuditTrail(ctx, "doc-x")
	require.NoError(t, err)
	assert.Empty(t, audit)
	require.NoError(t, mock.ExpectationsWereMet())
}
