package models

import (
	"strings"
	"time"
)

// StudentCategory is the closed set of enrollment categories.
type StudentCategory string

const (
	CategoryReguler           StudentCategory = "REGULER"
	CategoryBinaanMukim       StudentCategory = "BINAAN_MUKIM"
	CategoryMahasantriBantuan StudentCategory = "MAHASANTRI_BANTUAN"
	CategoryBinaanNonMukim    StudentCategory = "BINAAN_NON_MUKIM"
)

// Categories lists every category in rule-table order.
var Categories = []StudentCategory{
	CategoryReguler,
	CategoryBinaanMukim,
	CategoryMahasantriBantuan,
	CategoryBinaanNonMukim,
}

var categoryLabels = map[string]StudentCategory{
	"reguler":                 CategoryReguler,
	"mahasantri reguler":      CategoryReguler,
	"santri reguler":          CategoryReguler,
	"santri tpq":              CategoryReguler,
	"tpq":                     CategoryReguler,
	"santri madin":            CategoryReguler,
	"madin":                   CategoryReguler,
	"binaan mukim":            CategoryBinaanMukim,
	"santri binaan mukim":     CategoryBinaanMukim,
	"mahasantri bantuan":      CategoryMahasantriBantuan,
	"binaan non mukim":        CategoryBinaanNonMukim,
	"santri binaan non mukim": CategoryBinaanNonMukim,
}

// ParseCategory maps an enum name or a legacy form label onto a category.
// A bare "Binaan" label is split by the resident flag. Unknown labels fall
// back to REGULER and report ok=false.
func ParseCategory(label string, resident *bool) (StudentCategory, bool) {
	key := normalizeLabel(label)
	if c, ok := categoryLabels[key]; ok {
		return c, true
	}
	if key == "binaan" || key == "santri binaan" {
		if resident != nil && *resident {
			return CategoryBinaanMukim, true
		}
		return CategoryBinaanNonMukim, true
	}
	return CategoryReguler, false
}

// IsAssistance reports whether c is one of the sponsored (binaan/bantuan) categories.
func (c StudentCategory) IsAssistance() bool {
	switch c {
	case CategoryBinaanMukim, CategoryMahasantriBantuan, CategoryBinaanNonMukim:
		return true
	}
	return false
}

// IsResident reports whether c implies living at the pesantren.
func (c StudentCategory) IsResident() bool {
	return c == CategoryBinaanMukim || c == CategoryMahasantriBantuan
}

// SocialStatus is the orphan/hardship classification.
type SocialStatus string

const (
	SocialLengkap    SocialStatus = "LENGKAP"
	SocialYatim      SocialStatus = "YATIM"
	SocialPiatu      SocialStatus = "PIATU"
	SocialYatimPiatu SocialStatus = "YATIM_PIATU"
	SocialDhuafa     SocialStatus = "DHUAFA"
)

var socialLabels = map[string]SocialStatus{
	"lengkap":      SocialLengkap,
	"complete":     SocialLengkap,
	"yatim":        SocialYatim,
	"piatu":        SocialPiatu,
	"yatim piatu":  SocialYatimPiatu,
	"dhuafa":       SocialDhuafa,
	"kurang mampu": SocialDhuafa,
}

// ParseSocialStatus maps a label onto a status. Unknown values read as LENGKAP
// so that no conditional rule fires.
func ParseSocialStatus(label string) (SocialStatus, bool) {
	if s, ok := socialLabels[normalizeLabel(label)]; ok {
		return s, true
	}
	return SocialLengkap, false
}

// PaternalLoss reports whether the father is deceased.
func (s SocialStatus) PaternalLoss() bool {
	return s == SocialYatim || s == SocialYatimPiatu
}

// MaternalLoss reports whether the mother is deceased.
func (s SocialStatus) MaternalLoss() bool {
	return s == SocialPiatu || s == SocialYatimPiatu
}

// Hardship reports economic hardship.
func (s SocialStatus) Hardship() bool {
	return s == SocialDhuafa
}

func normalizeLabel(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	return strings.Join(strings.Fields(raw), " ")
}

// Student is a row of the students table.
type Student struct {
	ID           string          `db:"id" json:"id"`
	NIS          string          `db:"nis" json:"nis"`
	FullName     string          `db:"full_name" json:"full_name"`
	Category     StudentCategory `db:"category" json:"category"`
	SocialStatus SocialStatus    `db:"social_status" json:"social_status"`
	BirthDate    *time.Time      `db:"birth_date" json:"birth_date,omitempty"`
	Address      string          `db:"address" json:"address"`
	Resident     *bool           `db:"resident" json:"resident,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Guardian is a row of the guardians table.
type Guardian struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Relationship string    `db:"relationship" json:"relationship"`
	NIK          string    `db:"nik" json:"nik,omitempty"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	IsPrimary    bool      `db:"is_primary" json:"is_primary"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StudentDetail bundles a student with its guardians.
type StudentDetail struct {
	Student
	Guardians []Guardian `json:"guardians"`
}

// StudentFilter narrows cohort queries.
type StudentFilter struct {
	Category *StudentCategory
	Search   string
	Limit    int
	Offset   int
}

// StudentProfile is the read-only snapshot the requirement resolver consumes.
type StudentProfile struct {
	Category             StudentCategory `json:"category"`
	SocialStatus         SocialStatus    `json:"social_status"`
	BirthDate            *time.Time      `json:"birth_date,omitempty"`
	GuardianRelationship string          `json:"guardian_relationship,omitempty"`
	Address              string          `json:"address,omitempty"`
	Resident             *bool           `json:"resident,omitempty"`
}

// Profile derives the resolver snapshot from the student and its primary guardian.
func (d StudentDetail) Profile() StudentProfile {
	p := StudentProfile{
		Category:     d.Category,
		SocialStatus: d.SocialStatus,
		BirthDate:    d.BirthDate,
		Address:      d.Address,
		Resident:     d.Resident,
	}
	for _, g := range d.Guardians {
		if g.IsPrimary {
			p.GuardianRelationship = g.Relationship
			break
		}
	}
	return p
}

// StudentProfileUpdate carries the resolver-relevant fields an admin may change.
// Nil fields are left untouched.
type StudentProfileUpdate struct {
	Category             *StudentCategory
	SocialStatus         *SocialStatus
	BirthDate            *time.Time
	Address              *string
	Resident             *bool
	GuardianRelationship *string
}

// Empty reports whether no student column changes.
func (u StudentProfileUpdate) Empty() bool {
	return u.Category == nil && u.SocialStatus == nil && u.BirthDate == nil && u.Address == nil && u.Resident == nil
}
