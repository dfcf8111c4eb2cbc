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

const guardianColumns = `id, student_id, full_name, relationship, nik, phone, is_primary, created_at`

// GuardianRepository persists wali rows.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs the repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// ListByStudent returns the student's guardians, primary first.
func (r *GuardianRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE student_id = $1 ORDER BY is_primary DESC, created_at ASC`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, studentID); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	return guardians, nil
}

// ListPrimaryByStudents returns the primary guardian of each listed student.
func (r *GuardianRepository) ListPrimaryByStudents(ctx context.Context, studentIDs []string) ([]models.Guardian, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE is_primary AND student_id = ANY($1)`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list primary guardians: %w", err)
	}
	return guardians, nil
}

// Create inserts a guardian row.
func (r *GuardianRepository) Create(ctx context.Context, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO guardians (id, student_id, full_name, relationship, nik, phone, is_primary, created_at)
VALUES (:id, :student_id, :full_name, :relationship, :nik, :phone, :is_primary, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create guardian: %w", ErrDuplicate)
		}
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// UpdatePrimaryRelationship changes the relationship of the primary guardian.
// Students without one yield sql.ErrNoRows.
func (r *GuardianRepository) UpdatePrimaryRelationship(ctx context.Context, studentID, relationship string) error {
	const query = `UPDATE guardians SET relationship = $2 WHERE student_id = $1 AND is_primary`
	res, err := r.db.ExecContext(ctx, query, studentID, relationship)
	if err != nil {
		if isInvalidID(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update guardian relationship: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check guardian update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
