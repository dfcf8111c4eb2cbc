package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	"github.com/noah-isme/santri-dokumen-api/pkg/rpc"
)

type remoteStub struct {
	rows []rpc.RemoteRequirement
	err  error
	last rpc.RequirementsQuery
}

func (s *remoteStub) RequiredDocuments(_ context.Context, q rpc.RequirementsQuery) ([]rpc.RemoteRequirement, error) {
	s.last = q
	return s.rows, s.err
}

func TestDiffRequirements(t *testing.T) {
	local := []models.DocumentRequirement{
		{Code: "PAS_FOTO", Tag: models.TagRequired},
		{Code: "SKTM", Tag: models.TagConditional},
		{Code: "IJAZAH", Tag: models.TagOptional},
	}
	remote := []rpc.RemoteRequirement{
		{Code: "pas_foto", Kind: "wajib"},
		{Code: "SKTM", Kind: "wajib"},
		{Code: "SURAT_SEHAT", Required: true},
	}

	d := diffRequirements(local, remote)
	assert.Equal(t, []string{"IJAZAH"}, d.Missing)
	assert.Equal(t, []string{"SURAT_SEHAT"}, d.Extra)
	assert.Equal(t, []string{"SKTM(conditional!=required)"}, d.Tags)
	assert.False(t, d.empty())
}

func TestCompareMatchingChecklist(t *testing.T) {
	now := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	resolver := requirement.NewResolver(requirement.WithClock(func() time.Time { return now }))
	p := gridCase{Name: "reguler", Profile: models.StudentProfile{Category: models.CategoryReguler, SocialStatus: models.SocialLengkap}}

	var rows []rpc.RemoteRequirement
	for _, r := range resolver.Resolve(p.Profile) {
		rows = append(rows, rpc.RemoteRequirement{Code: r.Code, Kind: string(r.Tag)})
	}
	stub := &remoteStub{rows: rows}

	res := compare(context.Background(), stub, resolver, p)
	require.NoError(t, res.Err)
	assert.True(t, res.Diff.empty())
	assert.Equal(t, "Reguler", stub.last.Category)
	assert.Equal(t, "Lengkap", stub.last.SocialStatus)
	assert.Nil(t, stub.last.GuardianRel)
}

func TestCompareRemoteError(t *testing.T) {
	stub := &remoteStub{err: errors.New("boom")}
	res := compare(context.Background(), stub, requirement.NewResolver(), gridCase{Profile: models.StudentProfile{Category: models.CategoryReguler}})
	assert.Error(t, res.Err)
}

func TestGridCasesCoverGrid(t *testing.T) {
	now := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	all := gridCases(now)
	assert.Len(t, all, len(models.Categories)*5*3*3)

	q := query(all[len(all)-1].Profile)
	assert.Equal(t, "Binaan Non Mukim", q.Category)
	assert.Equal(t, "2006-07-14", q.BirthDate)
	require.NotNil(t, q.GuardianRel)
	assert.Equal(t, "Paman", *q.GuardianRel)
}
