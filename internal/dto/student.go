package dto

import (
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

// UpdateProfileRequest is the body of PUT /students/:id/profile. Omitted
// fields are left unchanged.
type UpdateProfileRequest struct {
	Category             *string `json:"category"`
	SocialStatus         *string `json:"socialStatus"`
	BirthDate            *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Address              *string `json:"address" validate:"omitempty,max=500"`
	Resident             *bool   `json:"resident"`
	GuardianRelationship *string `json:"guardianRelationship" validate:"omitempty,max=50"`
}

// ToUpdate converts the request, rejecting labels that do not name a known
// category or social status.
func (r UpdateProfileRequest) ToUpdate() (models.StudentProfileUpdate, error) {
	upd := models.StudentProfileUpdate{
		Address:              r.Address,
		Resident:             r.Resident,
		GuardianRelationship: r.GuardianRelationship,
	}
	if r.Category != nil {
		cat, ok := models.ParseCategory(*r.Category, r.Resident)
		if !ok {
			return upd, appErrors.WithDetails(appErrors.ErrValidation, "category", *r.Category)
		}
		upd.Category = &cat
	}
	if r.SocialStatus != nil {
		status, ok := models.ParseSocialStatus(*r.SocialStatus)
		if !ok {
			return upd, appErrors.WithDetails(appErrors.ErrValidation, "socialStatus", *r.SocialStatus)
		}
		upd.SocialStatus = &status
	}
	if r.BirthDate != nil {
		upd.BirthDate = ParseDate(*r.BirthDate)
	}
	return upd, nil
}
