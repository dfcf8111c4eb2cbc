package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateProfile(ctx context.Context, id string, upd models.StudentProfileUpdate) error
}

type guardianRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Guardian, error)
	ListPrimaryByStudents(ctx context.Context, studentIDs []string) ([]models.Guardian, error)
	Create(ctx context.Context, guardian *models.Guardian) error
	UpdatePrimaryRelationship(ctx context.Context, studentID, relationship string) error
}

type activeDocuments interface {
	ListActive(ctx context.Context, studentID string) ([]models.DocumentRecord, error)
	ListActiveForStudents(ctx context.Context, studentIDs []string) (map[string][]models.DocumentRecord, error)
}

// StudentCompleteness pairs a student with its computed checklist progress.
type StudentCompleteness struct {
	Student models.Student
	Result  models.CompletenessResult
}

// cohortPageSize bounds each student page read while building cohort reports.
const cohortPageSize = 500

// StudentService resolves requirements and completeness from stored profiles.
type StudentService struct {
	students  studentRepository
	guardians guardianRepository
	documents activeDocuments
	resolver  *requirement.Resolver
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, guardians guardianRepository, documents activeDocuments, resolver *requirement.Resolver, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if resolver == nil {
		resolver = requirement.NewResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:  students,
		guardians: guardians,
		documents: documents,
		resolver:  resolver,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Detail returns the student with its guardians.
func (s *StudentService) Detail(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	guardians, err := s.guardians.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}
	if guardians == nil {
		guardians = []models.Guardian{}
	}
	return &models.StudentDetail{Student: *student, Guardians: guardians}, nil
}

// Resolve evaluates an ad-hoc profile. It never fails.
func (s *StudentService) Resolve(profile models.StudentProfile) []models.DocumentRequirement {
	return s.resolver.ResolveAt(profile, s.now())
}

// Requirements resolves the stored profile of a student.
func (s *StudentService) Requirements(ctx context.Context, id string) ([]models.DocumentRequirement, error) {
	reqs, _, err := s.RequirementsWithSource(ctx, id)
	return reqs, err
}

// RequirementsWithSource is Requirements that also reports a cache hit.
func (s *StudentService) RequirementsWithSource(ctx context.Context, id string) ([]models.DocumentRequirement, bool, error) {
	ref := s.now()
	if cached, ok := s.cache.GetRequirements(ctx, id, ref); ok {
		return cached, true, nil
	}
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return nil, false, err
	}
	reqs := s.resolver.ResolveAt(detail.Profile(), ref)
	s.cache.SetRequirements(ctx, id, ref, reqs)
	return reqs, false, nil
}

// Completeness computes the student's checklist progress.
func (s *StudentService) Completeness(ctx context.Context, id string) (*models.CompletenessResult, error) {
	reqs, err := s.Requirements(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.documents.ListActive(ctx, id)
	if err != nil {
		return nil, err
	}
	result := requirement.Compute(reqs, records)
	s.metrics.ObserveCompleteness(result.Percentage)
	return &result, nil
}

// UpdateProfile changes resolver-relevant fields and drops cached lists.
// A relationship change requires a primary guardian and is checked before
// anything is written. If the guardian write still fails after the student
// row changed, the error is PARTIAL_COMMIT naming the committed part.
func (s *StudentService) UpdateProfile(ctx context.Context, id string, upd models.StudentProfileUpdate) (*models.StudentDetail, error) {
	if upd.Empty() && upd.GuardianRelationship == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no profile fields supplied")
	}
	if upd.GuardianRelationship != nil {
		if err := s.requirePrimaryGuardian(ctx, id); err != nil {
			return nil, err
		}
	}

	committed := make([]string, 0, 2)
	defer func() {
		if len(committed) == 0 {
			return
		}
		if err := s.cache.InvalidateStudent(ctx, id); err != nil {
			s.logger.Warn("stale requirements may be served until ttl", zap.String("student_id", id), zap.Error(err))
		}
	}()

	if !upd.Empty() {
		if err := s.students.UpdateProfile(ctx, id, upd); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
		}
		committed = append(committed, "student")
	}
	if upd.GuardianRelationship != nil {
		rel := strings.TrimSpace(*upd.GuardianRelationship)
		if err := s.guardians.UpdatePrimaryRelationship(ctx, id, rel); err != nil {
			if len(committed) > 0 {
				s.logger.Error("profile update partially committed",
					zap.String("student_id", id),
					zap.Strings("committed", committed),
					zap.Error(err),
				)
				partial := appErrors.Wrap(err, appErrors.ErrPartialCommit.Code, appErrors.ErrPartialCommit.Status, "profile partially updated")
				partial = appErrors.WithDetails(partial, "studentId", id)
				partial = appErrors.WithDetails(partial, "committed", append([]string(nil), committed...))
				partial = appErrors.WithDetails(partial, "failed", []string{"guardian"})
				return nil, partial
			}
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no primary guardian")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update guardian")
		}
		committed = append(committed, "guardian")
	}
	return s.Detail(ctx, id)
}

func (s *StudentService) requirePrimaryGuardian(ctx context.Context, id string) error {
	guardians, err := s.guardians.ListByStudent(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}
	for _, g := range guardians {
		if g.IsPrimary {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student has no primary guardian")
}

// Cohort computes completeness for every student matching filter.
func (s *StudentService) Cohort(ctx context.Context, filter models.StudentFilter) ([]StudentCompleteness, error) {
	ref := s.now()
	out := make([]StudentCompleteness, 0)
	filter.Limit = cohortPageSize
	filter.Offset = 0
	for {
		students, err := s.students.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		if len(students) == 0 {
			break
		}
		ids := make([]string, len(students))
		for i, st := range students {
			ids[i] = st.ID
		}
		primaries, err := s.guardians.ListPrimaryByStudents(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
		}
		byStudent := make(map[string]models.Guardian, len(primaries))
		for _, g := range primaries {
			byStudent[g.StudentID] = g
		}
		records, err := s.documents.ListActiveForStudents(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, st := range students {
			detail := models.StudentDetail{Student: st}
			if g, ok := byStudent[st.ID]; ok {
				detail.Guardians = []models.Guardian{g}
			}
			reqs := s.resolver.ResolveAt(detail.Profile(), ref)
			out = append(out, StudentCompleteness{Student: st, Result: requirement.Compute(reqs, records[st.ID])})
		}
		if len(students) < cohortPageSize {
			break
		}
		filter.Offset += cohortPageSize
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
