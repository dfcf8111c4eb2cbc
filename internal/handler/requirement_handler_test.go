package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
)

func TestRequirementHandlerResolve(t *testing.T) {
	h := NewRequirementHandler(requirement.NewResolver())
	c, w := newGinContext(http.MethodPost, "/requirements/resolve", []byte(`{"category":"Santri Binaan","resident":true,"socialStatus":"piatu","birthDate":"not-a-date"}`))

	h.Resolve(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.RequirementsResponse
	env := decode(t, w)
	require.NoError(t, jsonUnmarshal(env.Data, &resp))
	assert.Equal(t, models.CategoryBinaanMukim, resp.Profile.Category)
	assert.Nil(t, resp.Profile.BirthDate)
	assert.True(t, requirement.Contains(resp.Requirements, "AKTA_KEMATIAN_IBU"))
	assert.False(t, requirement.Contains(resp.Requirements, "KTP_SANTRI"))
}

func TestRequirementHandlerResolveUnknownCategoryFallsBack(t *testing.T) {
	h := NewRequirementHandler(requirement.NewResolver())
	c, w := newGinContext(http.MethodPost, "/requirements/resolve", []byte(`{"category":"Alumni"}`))

	h.Resolve(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.RequirementsResponse
	require.NoError(t, jsonUnmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, []string{"PAS_FOTO", "AKTA_LAHIR_ATAU_KK", "IJAZAH", "TRANSKRIP", "SERTIFIKAT_PRESTASI"}, requirement.Codes(resp.Requirements))
}

func TestRequirementHandlerResolveBadJSON(t *testing.T) {
	h := NewRequirementHandler(requirement.NewResolver())
	c, w := newGinContext(http.MethodPost, "/requirements/resolve", []byte(`{`))
	h.Resolve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
