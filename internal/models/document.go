package models

import (
	"strings"
	"time"
)

// RequirementTag classifies how a document requirement applies.
type RequirementTag string

const (
	TagRequired    RequirementTag = "required"
	TagConditional RequirementTag = "conditional"
	TagOptional    RequirementTag = "optional"
)

// Counts reports whether the tag contributes to completeness.
func (t RequirementTag) Counts() bool {
	return t == TagRequired || t == TagConditional
}

// DocumentRequirement is one entry of a resolved checklist.
type DocumentRequirement struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Tag       RequirementTag `json:"tag"`
	Condition string         `json:"condition,omitempty"`
	Format    string         `json:"format"`
}

// DocumentStatus is the verification state of an uploaded document.
type DocumentStatus string

const (
	DocumentUnverified    DocumentStatus = "UNVERIFIED"
	DocumentNeedsRevision DocumentStatus = "NEEDS_REVISION"
	DocumentValid         DocumentStatus = "VALID"
	DocumentInvalid       DocumentStatus = "INVALID"
)

var documentStatusLabels = map[string]DocumentStatus{
	"unverified":         DocumentUnverified,
	"belum diverifikasi": DocumentUnverified,
	"needs revision":     DocumentNeedsRevision,
	"perlu revisi":       DocumentNeedsRevision,
	"valid":              DocumentValid,
	"invalid":            DocumentInvalid,
	"tidak valid":        DocumentInvalid,
}

// ParseDocumentStatus accepts enum names and the Indonesian review labels.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	s, ok := documentStatusLabels[normalizeLabel(raw)]
	return s, ok
}

// IsVerificationTarget reports whether a reviewer may set s.
func (s DocumentStatus) IsVerificationTarget() bool {
	return s == DocumentValid || s == DocumentNeedsRevision || s == DocumentInvalid
}

// DocumentMetadata describes the stored file behind a record.
type DocumentMetadata struct {
	FileURL      string
	MimeType     string
	SizeBytes    int64
	OriginalName string
	UploadedBy   string
}

// DocumentRecord is a row of document_records. At most one row per
// (student_id, requirement_code) is active.
type DocumentRecord struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	RequirementCode string         `db:"requirement_code" json:"requirement_code"`
	FileRef         string         `db:"file_ref" json:"file_ref"`
	FileURL         string         `db:"file_url" json:"file_url"`
	MimeType        string         `db:"mime_type" json:"mime_type"`
	SizeBytes       int64          `db:"size_bytes" json:"size_bytes"`
	OriginalName    string         `db:"original_name" json:"original_name"`
	Status          DocumentStatus `db:"status" json:"status"`
	Note            *string        `db:"note" json:"note,omitempty"`
	VerifiedBy      *string        `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time     `db:"verified_at" json:"verified_at,omitempty"`
	UploadedBy      *string        `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt      time.Time      `db:"uploaded_at" json:"uploaded_at"`
	Active          bool           `db:"active" json:"active"`
	DeactivatedAt   *time.Time     `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

// DocumentAuditEntry is an append-only verification log row.
type DocumentAuditEntry struct {
	ID        string         `db:"id" json:"id"`
	RecordID  string         `db:"record_id" json:"record_id"`
	OldStatus DocumentStatus `db:"old_status" json:"old_status"`
	NewStatus DocumentStatus `db:"new_status" json:"new_status"`
	Note      *string        `db:"note" json:"note,omitempty"`
	ActorID   string         `db:"actor_id" json:"actor_id"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// BadgeMissing marks a requirement without an active record.
const BadgeMissing = "MISSING"

// CompletenessItem is the per-requirement badge of a completeness view.
type CompletenessItem struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Tag      RequirementTag `json:"tag"`
	Badge    string         `json:"badge"`
	RecordID string         `json:"record_id,omitempty"`
}

// CompletenessResult is the derived progress of a student's checklist.
type CompletenessResult struct {
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	Percentage int                `json:"percentage"`
	Items      []CompletenessItem `json:"items"`
}

// NormalizeCode upper-cases and trims a requirement code from a URL or form.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
