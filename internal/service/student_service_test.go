package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

type studentRepoStub struct {
	mu        sync.Mutex
	students  map[string]models.Student
	createErr error
	lists     int
}

func newStudentRepoStub(students ...models.Student) *studentRepoStub {
	s := &studentRepoStub{students: map[string]models.Student{}}
	for _, st := range students {
		s.students[st.ID] = st
	}
	return s
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	out := make([]models.Student, 0, len(r.students))
	for _, st := range r.students {
		if filter.Category != nil && st.Category != *filter.Category {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NIS < out[j].NIS })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if student.ID == "" {
		student.ID = "s-" + student.NIS
	}
	r.students[student.ID] = *student
	return nil
}

func (r *studentRepoStub) UpdateProfile(ctx context.Context, id string, upd models.StudentProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	if upd.Category != nil {
		st.Category = *upd.Category
	}
	if upd.SocialStatus != nil {
		st.SocialStatus = *upd.SocialStatus
	}
	if upd.BirthDate != nil {
		st.BirthDate = upd.BirthDate
	}
	if upd.Address != nil {
		st.Address = *upd.Address
	}
	if upd.Resident != nil {
		st.Resident = upd.Resident
	}
	r.students[id] = st
	return nil
}

type guardianRepoStub struct {
	mu        sync.Mutex
	guardians []models.Guardian
	failOn    string
	updateErr error
}

func (g *guardianRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.Guardian, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.Guardian
	for _, gd := range g.guardians {
		if gd.StudentID == studentID {
			out = append(out, gd)
		}
	}
	return out, nil
}

func (g *guardianRepoStub) ListPrimaryByStudents(ctx context.Context, studentIDs []string) ([]models.Guardian, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range studentIDs {
		wanted[id] = true
	}
	var out []models.Guardian
	for _, gd := range g.guardians {
		if gd.IsPrimary && wanted[gd.StudentID] {
			out = append(out, gd)
		}
	}
	return out, nil
}

func (g *guardianRepoStub) Create(ctx context.Context, guardian *models.Guardian) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOn != "" && guardian.FullName == g.failOn {
		return errors.New("insert guardian: connection reset")
	}
	if guardian.ID == "" {
		guardian.ID = "g-" + guardian.FullName
	}
	g.guardians = append(g.guardians, *guardian)
	return nil
}

func (g *guardianRepoStub) UpdatePrimaryRelationship(ctx context.Context, studentID, relationship string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	for i, gd := range g.guardians {
		if gd.StudentID == studentID && gd.IsPrimary {
			g.guardians[i].Relationship = relationship
			return nil
		}
	}
	return sql.ErrNoRows
}

func boolPtr(v bool) *bool { return &v }

var fixedNow = time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC)

func mukimYatim() models.Student {
	birth := time.Date(2012, 1, 10, 0, 0, 0, 0, time.UTC)
	return models.Student{ID: "s-1", NIS: "2025001", FullName: "Ahmad", Category: models.CategoryBinaanMukim,
		SocialStatus: models.SocialYatim, BirthDate: &birth, Resident: boolPtr(true)}
}

func newStudentServiceForTest(t *testing.T, students ...models.Student) (*StudentService, *DocumentService, *guardianRepoStub, *cacheRepoStub) {
	t.Helper()
	docs := newDocumentServiceForTest()
	guardians := &guardianRepoStub{}
	cacheRepo := newCacheRepoStub()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewStudentService(newStudentRepoStub(students...), guardians, docs, requirement.NewResolver(), cache, NewMetricsService(), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, docs, guardians, cacheRepo
}

func TestStudentServiceRequirementsForStoredProfile(t *testing.T) {
	svc, _, _, cacheRepo := newStudentServiceForTest(t, mukimYatim())

	reqs, err := svc.Requirements(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"PAS_FOTO", "PAS_FOTO_4X6", "AKTA_LAHIR", "KARTU_KELUARGA", "KTP_WALI_UTAMA", "KTP_WALI_PENDAMPING", "SURAT_SEHAT",
		"AKTA_KEMATIAN_AYAH", "IJAZAH", "TRANSKRIP", "SERTIFIKAT_PRESTASI",
	}, requirement.Codes(reqs))
	assert.Len(t, cacheRepo.data, 1)

	_, err = svc.Requirements(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceCompleteness(t *testing.T) {
	svc, docs, _, _ := newStudentServiceForTest(t, mukimYatim())
	ctx := context.Background()

	reqs, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	for _, req := range reqs {
		if req.Tag == models.TagOptional {
			continue
		}
		rec, err := docs.Upsert(ctx, "s-1", req.Code, "santri/s-1/"+req.Code+"/1.pdf", models.DocumentMetadata{})
		require.NoError(t, err)
		if req.Code != "AKTA_KEMATIAN_AYAH" && req.Code != "SURAT_SEHAT" {
			_, err = docs.SetStatus(ctx, rec.ID, models.DocumentValid, "", "staff-1")
			require.NoError(t, err)
		}
	}

	result, err := svc.Completeness(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 8, result.Total)
	assert.Equal(t, 6, result.Completed)
	assert.Equal(t, 75, result.Percentage)
	assert.Len(t, result.Items, 11)
	assert.Equal(t, models.BadgeMissing, result.Items[len(result.Items)-1].Badge)
}

func TestStudentServiceUpdateProfileInvalidatesCache(t *testing.T) {
	st := mukimYatim()
	svc, _, guardians, cacheRepo := newStudentServiceForTest(t, st)
	guardians.guardians = []models.Guardian{{ID: "g-1", StudentID: "s-1", FullName: "Fatimah", Relationship: "Ibu", IsPrimary: true}}
	ctx := context.Background()

	_, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, cacheRepo.data, 1)

	status := models.SocialDhuafa
	rel := "Paman"
	detail, err := svc.UpdateProfile(ctx, "s-1", models.StudentProfileUpdate{SocialStatus: &status, GuardianRelationship: &rel})
	require.NoError(t, err)
	assert.Equal(t, models.SocialDhuafa, detail.SocialStatus)
	assert.Equal(t, "Paman", detail.Guardians[0].Relationship)
	assert.Empty(t, cacheRepo.data)

	reqs, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, requirement.Contains(reqs, "SKTM"))
	assert.False(t, requirement.Contains(reqs, "AKTA_KEMATIAN_AYAH"))

	_, err = svc.UpdateProfile(ctx, "s-1", models.StudentProfileUpdate{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.UpdateProfile(ctx, "missing", models.StudentProfileUpdate{SocialStatus: &status})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceUpdateProfileWithoutPrimaryGuardianWritesNothing(t *testing.T) {
	svc, _, _, cacheRepo := newStudentServiceForTest(t, mukimYatim())
	ctx := context.Background()

	before, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, cacheRepo.data, 1)

	status := models.SocialDhuafa
	rel := "Paman"
	_, err = svc.UpdateProfile(ctx, "s-1", models.StudentProfileUpdate{SocialStatus: &status, GuardianRelationship: &rel})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	detail, err := svc.Detail(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.SocialYatim, detail.SocialStatus)

	after, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, requirement.Codes(before), requirement.Codes(after))
	assert.False(t, requirement.Contains(after, "SKTM"))
}

func TestStudentServiceUpdateProfileGuardianFailureIsPartialCommit(t *testing.T) {
	svc, _, guardians, cacheRepo := newStudentServiceForTest(t, mukimYatim())
	guardians.guardians = []models.Guardian{{ID: "g-1", StudentID: "s-1", FullName: "Fatimah", Relationship: "Ibu", IsPrimary: true}}
	ctx := context.Background()

	_, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, cacheRepo.data, 1)

	guardians.updateErr = errors.New("update guardian: connection reset")
	status := models.SocialDhuafa
	rel := "Paman"
	_, err = svc.UpdateProfile(ctx, "s-1", models.StudentProfileUpdate{SocialStatus: &status, GuardianRelationship: &rel})
	require.ErrorIs(t, err, appErrors.ErrPartialCommit)

	appErr := appErrors.FromError(err)
	assert.Equal(t, []string{"student"}, appErr.Details["committed"])
	assert.Equal(t, []string{"guardian"}, appErr.Details["failed"])
	assert.Empty(t, cacheRepo.data)

	reqs, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, requirement.Contains(reqs, "SKTM"))
}

func TestStudentServiceUpdateProfileGuardianOnlyFailure(t *testing.T) {
	svc, _, guardians, cacheRepo := newStudentServiceForTest(t, mukimYatim())
	guardians.guardians = []models.Guardian{{ID: "g-1", StudentID: "s-1", FullName: "Fatimah", Relationship: "Ibu", IsPrimary: true}}
	guardians.updateErr = errors.New("update guardian: connection reset")
	ctx := context.Background()

	_, err := svc.Requirements(ctx, "s-1")
	require.NoError(t, err)

	rel := "Paman"
	_, err = svc.UpdateProfile(ctx, "s-1", models.StudentProfileUpdate{GuardianRelationship: &rel})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Len(t, cacheRepo.data, 1)
}

func TestStudentServiceCohort(t *testing.T) {
	regular := models.Student{ID: "s-2", NIS: "2025002", FullName: "Budi", Category: models.CategoryReguler, SocialStatus: models.SocialLengkap}
	svc, docs, _, _ := newStudentServiceForTest(t, mukimYatim(), regular)
	ctx := context.Background()

	for _, code := range []string{"PAS_FOTO", "AKTA_LAHIR_ATAU_KK"} {
		rec, err := docs.Upsert(ctx, "s-2", code, "ref-"+code, models.DocumentMetadata{})
		require.NoError(t, err)
		_, err = docs.SetStatus(ctx, rec.ID, models.DocumentValid, "", "staff-1")
		require.NoError(t, err)
	}

	cohort, err := svc.Cohort(ctx, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, cohort, 2)
	assert.Equal(t, "s-1", cohort[0].Student.ID)
	assert.Equal(t, 0, cohort[0].Result.Percentage)
	assert.Equal(t, 100, cohort[1].Result.Percentage)
	assert.Equal(t, 2, cohort[1].Result.Total)

	cat := models.CategoryReguler
	only, err := svc.Cohort(ctx, models.StudentFilter{Category: &cat})
	require.NoError(t, err)
	require.Len(t, only, 1)
}

func TestStudentServiceResolveAdHoc(t *testing.T) {
	svc, _, _, _ := newStudentServiceForTest(t)
	reqs := svc.Resolve(models.StudentProfile{Category: models.CategoryReguler, SocialStatus: models.SocialLengkap})
	assert.Equal(t, []string{"PAS_FOTO", "AKTA_LAHIR_ATAU_KK", "IJAZAH", "TRANSKRIP", "SERTIFIKAT_PRESTASI"}, requirement.Codes(reqs))
}
