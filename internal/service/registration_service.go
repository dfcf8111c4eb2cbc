package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/repository"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
	"github.com/noah-isme/santri-dokumen-api/pkg/validation"
)

// RegistrationPreview is the checklist a draft would produce.
type RegistrationPreview struct {
	Version      int                          `json:"version"`
	Profile      models.StudentProfile        `json:"profile"`
	Requirements []models.DocumentRequirement `json:"requirements"`
}

// RegistrationResult lists what a submit committed.
type RegistrationResult struct {
	StudentID   string                       `json:"studentId,omitempty"`
	GuardianIDs []string                     `json:"guardianIds"`
	Committed   []string                     `json:"committed"`
	Failed      []string                     `json:"failed,omitempty"`
	Requirement []models.DocumentRequirement `json:"requirements,omitempty"`
}

// RegistrationService turns registration drafts into stored students.
type RegistrationService struct {
	students  studentRepository
	guardians guardianRepository
	resolver  *requirement.Resolver
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs the service.
func NewRegistrationService(students studentRepository, guardians guardianRepository, resolver *requirement.Resolver, validator *validation.Validator, logger *zap.Logger) *RegistrationService {
	if resolver == nil {
		resolver = requirement.NewResolver()
	}
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{students: students, guardians: guardians, resolver: resolver, validator: validator, logger: logger, now: time.Now}
}

// DraftFromRequest builds a draft by applying the request field by field.
func DraftFromRequest(req dto.RegistrationRequest) (Draft, error) {
	updates := []DraftUpdate{
		SetIdentity(req.NIS, req.FullName),
		SetResident(req.Resident),
		SetCategory(req.Category),
		SetSocialStatus(req.SocialStatus),
		SetBirthDate(dto.ParseDate(req.BirthDate)),
		SetAddress(req.Address),
	}
	primary := -1
	for i, g := range req.Guardians {
		updates = append(updates, AddGuardian(models.Guardian{FullName: g.FullName, Relationship: g.Relationship, NIK: g.NIK, Phone: g.Phone}))
		if g.Primary && primary < 0 {
			primary = i
		}
	}
	if len(req.Guardians) > 0 {
		if primary < 0 {
			primary = 0
		}
		updates = append(updates, SetPrimaryGuardian(primary))
	}
	draft, err := NewDraft().Apply(updates...)
	if err != nil {
		return Draft{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return draft, nil
}

// Preview resolves the requirement list a draft would get. Identity fields
// are not required.
func (s *RegistrationService) Preview(req dto.RegistrationRequest) (*RegistrationPreview, error) {
	draft, err := DraftFromRequest(req)
	if err != nil {
		return nil, err
	}
	profile := draft.Profile()
	return &RegistrationPreview{
		Version:      draft.Version(),
		Profile:      profile,
		Requirements: s.resolver.ResolveAt(profile, s.now()),
	}, nil
}

// Submit validates req and writes the student, then each guardian. When a
// guardian write fails after the student was stored, the returned result
// names the committed parts alongside a PARTIAL_COMMIT error.
func (s *RegistrationService) Submit(ctx context.Context, req dto.RegistrationRequest) (*RegistrationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if _, ok := models.ParseCategory(req.Category, req.Resident); !ok {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "category", req.Category)
	}
	draft, err := DraftFromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, draft)
}

func (s *RegistrationService) commit(ctx context.Context, draft Draft) (*RegistrationResult, error) {
	result := &RegistrationResult{GuardianIDs: []string{}, Committed: []string{}}

	student := draft.Student()
	student.ID = uuid.NewString()
	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "NIS already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	result.StudentID = student.ID
	result.Committed = append(result.Committed, "student")

	guardians := draft.Guardians()
	for i := range guardians {
		g := guardians[i]
		g.StudentID = student.ID
		if err := s.guardians.Create(ctx, &g); err != nil {
			for j := i; j < len(guardians); j++ {
				result.Failed = append(result.Failed, "guardian:"+guardians[j].FullName)
			}
			s.logger.Error("registration partially committed",
				zap.String("student_id", student.ID),
				zap.Strings("committed", result.Committed),
				zap.Strings("failed", result.Failed),
				zap.Error(err),
			)
			partial := appErrors.Wrap(err, appErrors.ErrPartialCommit.Code, appErrors.ErrPartialCommit.Status, appErrors.ErrPartialCommit.Message)
			partial = appErrors.WithDetails(partial, "studentId", student.ID)
			partial = appErrors.WithDetails(partial, "committed", result.Committed)
			partial = appErrors.WithDetails(partial, "failed", result.Failed)
			return result, partial
		}
		result.GuardianIDs = append(result.GuardianIDs, g.ID)
		result.Committed = append(result.Committed, "guardian:"+g.FullName)
	}

	result.Requirement = s.resolver.ResolveAt(draft.Profile(), s.now())
	s.logger.Info("registration committed", zap.String("student_id", student.ID), zap.Int("guardians", len(result.GuardianIDs)))
	return result, nil
}
