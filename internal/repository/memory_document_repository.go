package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// MemoryDocumentRepository keeps document records in process. It backs the
// CLI and tests and is used by the API when no database is configured.
type MemoryDocumentRepository struct {
	mu      sync.RWMutex
	records map[string]models.DocumentRecord
	audits  map[string][]models.DocumentAuditEntry
	seq     int64
}

// NewMemoryDocumentRepository constructs an empty store.
func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{
		records: map[string]models.DocumentRecord{},
		audits:  map[string][]models.DocumentAuditEntry{},
	}
}

// Upsert retires the active record for (student, code) and stores rec as active.
func (r *MemoryDocumentRepository) Upsert(_ context.Context, rec *models.DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	// Keep insertion order observable even when two uploads share a timestamp.
	r.seq++
	rec.UploadedAt = rec.UploadedAt.Add(time.Duration(r.seq) * time.Nanosecond)
	rec.Status = models.DocumentUnverified
	rec.Active = true
	rec.DeactivatedAt = nil

	for id, existing := range r.records {
		if existing.Active && existing.StudentID == rec.StudentID && existing.RequirementCode == rec.RequirementCode {
			at := rec.UploadedAt
			existing.Active = false
			existing.DeactivatedAt = &at
			r.records[id] = existing
		}
	}
	r.records[rec.ID] = *rec
	return nil
}

// GetByID returns any record, active or not.
func (r *MemoryDocumentRepository) GetByID(_ context.Context, id string) (*models.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rec, nil
}

// UpdateStatus changes an active record's status and appends an audit entry.
func (r *MemoryDocumentRepository) UpdateStatus(_ context.Context, id string, status models.DocumentStatus, note *string, actorID string, at time.Time) (*models.DocumentRecord, *models.DocumentAuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || !rec.Active {
		return nil, nil, sql.ErrNoRows
	}
	entry := models.DocumentAuditEntry{
		ID:        uuid.NewString(),
		RecordID:  id,
		OldStatus: rec.Status,
		NewStatus: status,
		Note:      note,
		ActorID:   actorID,
		CreatedAt: at,
	}
	actor := actorID
	verifiedAt := at
	rec.Status = status
	rec.Note = note
	rec.VerifiedBy = &actor
	rec.VerifiedAt = &verifiedAt
	r.records[id] = rec
	r.audits[id] = append(r.audits[id], entry)
	return &rec, &entry, nil
}

// Deactivate soft-deletes an active record.
func (r *MemoryDocumentRepository) Deactivate(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || !rec.Active {
		return sql.ErrNoRows
	}
	rec.Active = false
	rec.DeactivatedAt = &at
	r.records[id] = rec
	return nil
}

// ListActive returns the student's active records ordered by code.
func (r *MemoryDocumentRepository) ListActive(_ context.Context, studentID string) ([]models.DocumentRecord, error) {
	return r.filter(func(rec models.DocumentRecord) bool {
		return rec.Active && rec.StudentID == studentID
	}, byCode), nil
}

// ListActiveForStudents returns active records for a batch of students.
func (r *MemoryDocumentRepository) ListActiveForStudents(_ context.Context, studentIDs []string) ([]models.DocumentRecord, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	return r.filter(func(rec models.DocumentRecord) bool {
		_, ok := wanted[rec.StudentID]
		return rec.Active && ok
	}, byCode), nil
}

// History returns every version for (student, code), newest first.
func (r *MemoryDocumentRepository) History(_ context.Context, studentID, code string) ([]models.DocumentRecord, error) {
	return r.filter(func(rec models.DocumentRecord) bool {
		return rec.StudentID == studentID && rec.RequirementCode == code
	}, newestFirst), nil
}

// AuditTrail returns a copy of the record's audit entries, oldest first.
func (r *MemoryDocumentRepository) AuditTrail(_ context.Context, recordID string) ([]models.DocumentAuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.audits[recordID]
	out := make([]models.DocumentAuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *MemoryDocumentRepository) filter(keep func(models.DocumentRecord) bool, less func(a, b models.DocumentRecord) bool) []models.DocumentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DocumentRecord, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCode(a, b models.DocumentRecord) bool {
	if a.StudentID != b.StudentID {
		return a.StudentID < b.StudentID
	}
	return a.RequirementCode < b.RequirementCode
}

func newestFirst(a, b models.DocumentRecord) bool {
	return a.UploadedAt.After(b.UploadedAt)
}
