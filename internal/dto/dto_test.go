package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

func TestProfileRequestToProfile(t *testing.T) {
	resident := true
	p := ProfileRequest{Category: "Binaan", SocialStatus: "Yatim Piatu", BirthDate: "2008-02-30", Address: "  Cianjur ", Resident: &resident}.ToProfile()
	assert.Equal(t, models.CategoryBinaanMukim, p.Category)
	assert.Equal(t, models.SocialYatimPiatu, p.SocialStatus)
	assert.Nil(t, p.BirthDate)
	assert.Equal(t, "Cianjur", p.Address)

	fallback := ProfileRequest{Category: "Santri Kilat"}.ToProfile()
	assert.Equal(t, models.CategoryReguler, fallback.Category)
	assert.Equal(t, models.SocialLengkap, fallback.SocialStatus)
}

func TestUpdateProfileRequestRejectsUnknownLabels(t *testing.T) {
	bad := "Santri Kilat"
	_, err := UpdateProfileRequest{Category: &bad}.ToUpdate()
	require.ErrorIs(t, err, appErrors.ErrValidation)

	cat := "mahasantri bantuan"
	date := "2007-05-01"
	upd, err := UpdateProfileRequest{Category: &cat, BirthDate: &date}.ToUpdate()
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMahasantriBantuan, *upd.Category)
	require.NotNil(t, upd.BirthDate)
	assert.Equal(t, 2007, upd.BirthDate.Year())
}
