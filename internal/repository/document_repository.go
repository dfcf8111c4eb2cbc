package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

const documentColumns = `id, student_id, requirement_code, file_ref, file_url, mime_type, size_bytes, original_name,
       status, note, verified_by, verified_at, uploaded_by, uploaded_at, active, deactivated_at`

// DocumentRepository persists document_records and document_audit_log.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert retires the active record for (student, code) and inserts rec as the
// new active one. Writers for the same pair serialise on an advisory lock.
func (r *DocumentRepository) Upsert(ctx context.Context, rec *models.DocumentRecord) (err error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	rec.Status = models.DocumentUnverified
	rec.Active = true
	rec.DeactivatedAt = nil

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.StudentID+"|"+rec.RequirementCode); err != nil {
		return fmt.Errorf("lock document slot: %w", err)
	}
	const retire = `UPDATE document_records SET active = FALSE, deactivated_at = $3
WHERE student_id = $1 AND requirement_code = $2 AND active`
	if _, err = tx.ExecContext(ctx, retire, rec.StudentID, rec.RequirementCode, rec.UploadedAt); err != nil {
		return fmt.Errorf("retire active document: %w", err)
	}
	const insert = `INSERT INTO document_records
	(id, student_id, requirement_code, file_ref, file_url, mime_type, size_bytes, original_name, status, note, verified_by, verified_at, uploaded_by, uploaded_at, active, deactivated_at)
	VALUES (:id, :student_id, :requirement_code, :file_ref, :file_url, :mime_type, :size_bytes, :original_name, :status, :note, :verified_by, :verified_at, :uploaded_by, :uploaded_at, :active, :deactivated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, rec); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit document upsert: %w", err)
	}
	return nil
}

// GetByID returns any record, active or not.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM document_records WHERE id = $1`
	var rec models.DocumentRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, notFoundOnInvalidID(err)
	}
	return &rec, nil
}

// UpdateStatus sets the verification status of an active record and appends
// the matching audit entry in one transaction. Inactive or unknown ids yield
// sql.ErrNoRows.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, note *string, actorID string, at time.Time) (rec *models.DocumentRecord, entry *models.DocumentAuditEntry, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin status update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.DocumentRecord
	query := `SELECT ` + documentColumns + ` FROM document_records WHERE id = $1 AND active FOR UPDATE`
	if err = tx.GetContext(ctx, &current, query, id); err != nil {
		return nil, nil, notFoundOnInvalidID(err)
	}

	const update = `UPDATE document_records SET status = $2, note = $3, verified_by = $4, verified_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, update, id, status, note, actorID, at); err != nil {
		return nil, nil, fmt.Errorf("update document status: %w", err)
	}

	entry = &models.DocumentAuditEntry{
		ID:        uuid.NewString(),
		RecordID:  id,
		OldStatus: current.Status,
		NewStatus: status,
		Note:      note,
		ActorID:   actorID,
		CreatedAt: at,
	}
	const audit = `INSERT INTO document_audit_log (id, record_id, old_status, new_status, note, actor_id, created_at)
VALUES (:id, :record_id, :old_status, :new_status, :note, :actor_id, :created_at)`
	if _, err = tx.NamedExecContext(ctx, audit, entry); err != nil {
		return nil, nil, fmt.Errorf("append document audit: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit status update: %w", err)
	}

	current.Status = status
	current.Note = note
	current.VerifiedBy = &actorID
	current.VerifiedAt = &at
	return &current, entry, nil
}

// Deactivate soft-deletes an active record. The stored file is untouched.
func (r *DocumentRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE document_records SET active = FALSE, deactivated_at = $2 WHERE id = $1 AND active`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		if isInvalidID(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("deactivate document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document deactivate rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActive returns the student's active records ordered by code.
func (r *DocumentRepository) ListActive(ctx context.Context, studentID string) ([]models.DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM document_records WHERE student_id = $1 AND active ORDER BY requirement_code ASC`
	var records []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list active documents: %w", err)
	}
	return records, nil
}

// ListActiveForStudents returns active records for a batch of students.
func (r *DocumentRepository) ListActiveForStudents(ctx context.Context, studentIDs []string) ([]models.DocumentRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + documentColumns + ` FROM document_records WHERE active AND student_id = ANY($1)`
	var records []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list cohort documents: %w", err)
	}
	return records, nil
}

// History returns every version uploaded for (student, code), newest first.
func (r *DocumentRepository) History(ctx context.Context, studentID, code string) ([]models.DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM document_records WHERE student_id = $1 AND requirement_code = $2 ORDER BY uploaded_at DESC`
	var records []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, code); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list document history: %w", err)
	}
	return records, nil
}

// AuditTrail returns the audit entries of a record, oldest first.
func (r *DocumentRepository) AuditTrail(ctx context.Context, recordID string) ([]models.DocumentAuditEntry, error) {
	const query = `SELECT id, record_id, old_status, new_status, note, actor_id, created_at
FROM document_audit_log WHERE record_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.DocumentAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, recordID); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list document audit: %w", err)
	}
	return entries, nil
}
