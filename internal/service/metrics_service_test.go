package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshotAndExposition(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/students/:id", 200, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordUpload("PAS_FOTO", UploadResultStored, 2048)
	m.RecordUpload("SKTM", UploadResultPersistFailed, 0)
	m.SetPendingUploads(1)
	m.RecordVerification("VALID")
	m.ObserveCompleteness(75)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
	assert.EqualValues(t, 1, snap.UploadsStored)
	assert.EqualValues(t, 1, snap.UploadsFailed)
	assert.EqualValues(t, 1, snap.PendingUploads)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `document_uploads_total{code="PAS_FOTO",result="stored"} 1`))
	assert.True(t, strings.Contains(string(body), `document_verifications_total{status="VALID"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordUpload("PAS_FOTO", UploadResultStored, 1)
	m.RecordVerification("VALID")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
