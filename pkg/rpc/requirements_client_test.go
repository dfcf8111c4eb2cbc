package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredDocuments(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, requiredDocumentsProcedure, r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"kode_dokumen":"PAS_FOTO","nama_dokumen":"Pas Foto","kategori":"Wajib","is_required":true},
			{"kode_dokumen":"AKTA_KEMATIAN_AYAH","nama_dokumen":"Akta Kematian Ayah","kategori":"Kondisional","is_required":true},
			{"kode_dokumen":"IJAZAH","nama_dokumen":"Ijazah","kategori":"","is_required":false}
		]`))
	}))
	defer srv.Close()

	c := NewRequirementsClient(srv.URL, "key", time.Second, nil)
	rows, err := c.RequiredDocuments(context.Background(), RequirementsQuery{
		Category:     "Binaan Mukim",
		SocialStatus: "Yatim",
		BirthDate:    "2010-01-01",
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "required", rows[0].Tag())
	assert.Equal(t, "conditional", rows[1].Tag())
	assert.Equal(t, "optional", rows[2].Tag())

	assert.Equal(t, "Binaan Mukim", got["santri_kategori_param"])
	assert.Nil(t, got["wali_hubungan_param"])
}

func TestRequiredDocumentsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad param"}`))
	}))
	defer srv.Close()

	c := NewRequirementsClient(srv.URL, "", time.Second, nil)
	_, err := c.RequiredDocuments(context.Background(), RequirementsQuery{})
	require.Error(t, err)
}
