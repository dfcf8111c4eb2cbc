package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

func TestMemoryDocumentRepositoryKeepsOneActivePerCode(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()

	var last string
	for i := 0; i < 4; i++ {
		rec := &models.DocumentRecord{StudentID: "s-1", RequirementCode: "PAS_FOTO", FileRef: fmt.Sprintf("v%d", i)}
		require.NoError(t, repo.Upsert(ctx, rec))
		last = rec.ID
	}
	require.NoError(t, repo.Upsert(ctx, &models.DocumentRecord{StudentID: "s-1", RequirementCode: "SKTM"}))

	active, err := repo.ListActive(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, last, active[0].ID)

	history, err := repo.History(ctx, "s-1", "PAS_FOTO")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "v3", history[0].FileRef)
	for _, h := range history[1:] {
		assert.False(t, h.Active)
		assert.NotNil(t, h.DeactivatedAt)
	}
}

func TestMemoryDocumentRepositoryConcurrentCodes(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	codes := []string{"PAS_FOTO", "AKTA_LAHIR", "KARTU_KELUARGA", "SURAT_SEHAT"}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Upsert(ctx, &models.DocumentRecord{StudentID: "s-1", RequirementCode: codes[i%len(codes)]})
		}(i)
	}
	wg.Wait()

	active, err := repo.ListActive(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, active, len(codes))
}

func TestMemoryDocumentRepositoryStatusAndDeactivate(t *testing.T) {
	repo := NewMemoryDocumentRepository()
	ctx := context.Background()
	rec := &models.DocumentRecord{StudentID: "s-1", RequirementCode: "KTP_SANTRI"}
	require.NoError(t, repo.Upsert(ctx, rec))

	for i := 0; i < 3; i++ {
		_, _, err := repo.UpdateStatus(ctx, rec.ID, models.DocumentValid, nil, "staff-1", time.Now())
		require.NoError(t, err)
	}
	trail, err := repo.AuditTrail(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, models.DocumentUnverified, trail[0].OldStatus)
	assert.Equal(t, models.DocumentValid, trail[2].OldStatus)

	require.NoError(t, repo.Deactivate(ctx, rec.ID, time.Now()))
	require.ErrorIs(t, repo.Deactivate(ctx, rec.ID, time.Now()), sql.ErrNoRows)
	_, _, err = repo.UpdateStatus(ctx, rec.ID, models.DocumentInvalid, nil, "staff-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
