package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

type registrationServiceStub struct {
	result *service.RegistrationResult
	err    error
}

func (r registrationServiceStub) Preview(req dto.RegistrationRequest) (*service.RegistrationPreview, error) {
	return &service.RegistrationPreview{Version: 3}, nil
}

func (r registrationServiceStub) Submit(ctx context.Context, req dto.RegistrationRequest) (*service.RegistrationResult, error) {
	return r.result, r.err
}

func TestRegistrationHandlerSubmit(t *testing.T) {
	h := NewRegistrationHandler(registrationServiceStub{result: &service.RegistrationResult{StudentID: "s-1", Committed: []string{"student"}}})
	c, w := newGinContext(http.MethodPost, "/registrations", []byte(`{"nis":"1","fullName":"Ahmad","category":"REGULER"}`))
	h.Submit(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRegistrationHandlerPartialCommit(t *testing.T) {
	partial := appErrors.WithDetails(appErrors.ErrPartialCommit, "failed", []string{"guardian:Fatimah"})
	h := NewRegistrationHandler(registrationServiceStub{
		result: &service.RegistrationResult{StudentID: "s-1", Committed: []string{"student"}, Failed: []string{"guardian:Fatimah"}},
		err:    partial,
	})
	c, w := newGinContext(http.MethodPost, "/registrations", []byte(`{"nis":"1","fullName":"Ahmad","category":"REGULER"}`))

	h.Submit(c)

	require.Equal(t, http.StatusMultiStatus, w.Code)
	env := decode(t, w)
	var result service.RegistrationResult
	require.NoError(t, jsonUnmarshal(env.Data, &result))
	assert.Equal(t, "s-1", result.StudentID)
	assert.Equal(t, []string{"guardian:Fatimah"}, result.Failed)
	assert.Contains(t, env.Meta, "error")
}

func TestRegistrationHandlerConflictAndPreview(t *testing.T) {
	h := NewRegistrationHandler(registrationServiceStub{err: appErrors.Clone(appErrors.ErrConflict, "nis already registered")})
	c, w := newGinContext(http.MethodPost, "/registrations", []byte(`{"nis":"1"}`))
	h.Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newGinContext(http.MethodPost, "/registrations/preview", []byte(`{"category":"Mahasantri Bantuan"}`))
	h.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)
	var preview service.RegistrationPreview
	require.NoError(t, jsonUnmarshal(decode(t, w).Data, &preview))
	assert.Equal(t, 3, preview.Version)
}
