package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ProfileRequest is the body of POST /requirements/resolve. Labels may be
// enum names or the legacy form labels.
type ProfileRequest struct {
	Category             string `json:"category"`
	SocialStatus         string `json:"socialStatus"`
	BirthDate            string `json:"birthDate"`
	GuardianRelationship string `json:"guardianRelationship"`
	Address              string `json:"address"`
	Resident             *bool  `json:"resident"`
}

// ToProfile converts the request into a resolver snapshot. Malformed values
// degrade to "not provided" rather than failing.
func (r ProfileRequest) ToProfile() models.StudentProfile {
	category, _ := models.ParseCategory(r.Category, r.Resident)
	social, _ := models.ParseSocialStatus(r.SocialStatus)
	return models.StudentProfile{
		Category:             category,
		SocialStatus:         social,
		BirthDate:            ParseDate(r.BirthDate),
		GuardianRelationship: strings.TrimSpace(r.GuardianRelationship),
		Address:              strings.TrimSpace(r.Address),
		Resident:             r.Resident,
	}
}

// ParseDate returns nil for empty or malformed dates.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

// RequirementsResponse wraps a resolved checklist.
type RequirementsResponse struct {
	Profile      models.StudentProfile        `json:"profile"`
	Requirements []models.DocumentRequirement `json:"requirements"`
}
