package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/repository"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

func newDocumentServiceForTest() *DocumentService {
	return NewDocumentService(repository.NewMemoryDocumentRepository(), NewMetricsService(), nil)
}

func TestDocumentServiceUpsertKeepsSingleActive(t *testing.T) {
	svc := newDocumentServiceForTest()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Upsert(ctx, "s-1", "pas_foto", fmt.Sprintf("santri/s-1/PAS_FOTO/%d.png", i), models.DocumentMetadata{MimeType: "image/png", UploadedBy: "wali-1"})
		require.NoError(t, err)
	}

	active, err := svc.ListActive(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "PAS_FOTO", active[0].RequirementCode)
	assert.Equal(t, models.DocumentUnverified, active[0].Status)
	require.NotNil(t, active[0].UploadedBy)

	history, err := svc.History(ctx, "s-1", "PAS_FOTO")
	require.NoError(t, err)
	require.Len(t, history, 3)
	inactive := 0
	for _, h := range history {
		if !h.Active {
			inactive++
		}
	}
	assert.Equal(t, 2, inactive)
}

func TestDocumentServiceUpsertValidates(t *testing.T) {
	_, err := newDocumentServiceForTest().Upsert(context.Background(), "s-1", "", "ref", models.DocumentMetadata{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDocumentServiceSetStatusAppendsOneAuditPerCall(t *testing.T) {
	svc := newDocumentServiceForTest()
	ctx := context.Background()
	rec, err := svc.Upsert(ctx, "s-1", "SKTM", "santri/s-1/SKTM/1.pdf", models.DocumentMetadata{})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, rec.ID, models.DocumentUnverified, "", "staff-1")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	updated, err := svc.SetStatus(ctx, rec.ID, models.DocumentNeedsRevision, " stempel kurang jelas ", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentNeedsRevision, updated.Status)
	require.NotNil(t, updated.Note)
	assert.Equal(t, "stempel kurang jelas", *updated.Note)

	_, err = svc.SetStatus(ctx, rec.ID, models.DocumentValid, "", "staff-2")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, rec.ID, models.DocumentValid, "", "staff-2")
	require.NoError(t, err)

	trail, err := svc.AuditTrail(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, models.DocumentValid, trail[2].OldStatus)
	assert.Equal(t, models.DocumentValid, trail[2].NewStatus)
}

func TestDocumentServiceNotFound(t *testing.T) {
	svc := newDocumentServiceForTest()
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, "missing", models.DocumentValid, "", "staff-1")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	require.ErrorIs(t, svc.Deactivate(ctx, "missing"), appErrors.ErrNotFound)
	_, err = svc.AuditTrail(ctx, "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	rec, err := svc.Upsert(ctx, "s-1", "IJAZAH", "santri/s-1/IJAZAH/1.pdf", models.DocumentMetadata{})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, rec.ID))
	require.ErrorIs(t, svc.Deactivate(ctx, rec.ID), appErrors.ErrNotFound)
	_, err = svc.SetStatus(ctx, rec.ID, models.DocumentValid, "", "staff-1")
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	active, err := svc.ListActive(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, active)
}
