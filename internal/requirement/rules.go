package requirement

import (
	"strings"
	"time"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// AdultAge is the age from which a santri must hold their own KTP.
const AdultAge = 17

// Baseline returns the required codes for category. Unknown values get the
// REGULER list.
func Baseline(category models.StudentCategory) []string {
	switch category {
	case models.CategoryBinaanMukim:
		return []string{
			CodePasFoto, CodePasFoto4x6, CodeAktaLahir, CodeKartuKeluarga,
			CodeKTPWaliUtama, CodeKTPWaliPendamping, CodeSuratSehat,
		}
	case models.CategoryMahasantriBantuan:
		return []string{
			CodePasFoto, CodePasFoto4x6, CodeKTPSantri, CodeKartuKeluarga,
			CodeKTPWaliUtama, CodeKTPWaliPendamping, CodeSuratSehat,
		}
	case models.CategoryBinaanNonMukim:
		return []string{CodePasFoto, CodeAktaLahir, CodeKartuKeluarga, CodeKTPWaliUtama}
	case models.CategoryReguler:
		return []string{CodePasFoto, CodeAktaLahirAtauKK}
	default:
		return []string{CodePasFoto, CodeAktaLahirAtauKK}
	}
}

// OptionalCodes is appended to every resolved list.
var OptionalCodes = []string{CodeIjazah, CodeTranskrip, CodeSertifikatPrestasi}

// ruleInput is what a conditional rule may look at.
type ruleInput struct {
	profile      models.StudentProfile
	refDate      time.Time
	homeLocality string
}

// rule is one conditional requirement, evaluated in table order.
type rule struct {
	code      string
	condition string
	matches   func(ruleInput) bool
}

var conditionalRules = []rule{
	{
		code:      CodeAktaKematianAyah,
		condition: "Ayah telah meninggal (yatim / yatim piatu)",
		matches:   func(in ruleInput) bool { return in.profile.SocialStatus.PaternalLoss() },
	},
	{
		code:      CodeAktaKematianIbu,
		condition: "Ibu telah meninggal (piatu / yatim piatu)",
		matches:   func(in ruleInput) bool { return in.profile.SocialStatus.MaternalLoss() },
	},
	{
		code:      CodeSKTM,
		condition: "Keluarga dhuafa",
		matches:   func(in ruleInput) bool { return in.profile.SocialStatus.Hardship() },
	},
	{
		code:      CodeKTPSantri,
		condition: "Santri berusia 17 tahun atau lebih",
		matches: func(in ruleInput) bool {
			age, ok := AgeAt(in.profile.BirthDate, in.refDate)
			return ok && age >= AdultAge
		},
	},
	{
		code:      CodeKTPWaliUtama,
		condition: "Wali utama tercatat",
		matches: func(in ruleInput) bool {
			return strings.TrimSpace(in.profile.GuardianRelationship) != ""
		},
	},
	{
		code:      CodeSuratDomisili,
		condition: "Santri binaan berdomisili di luar wilayah pesantren",
		matches: func(in ruleInput) bool {
			if !in.profile.Category.IsAssistance() || in.homeLocality == "" {
				return false
			}
			addr := strings.ToLower(strings.TrimSpace(in.profile.Address))
			return addr != "" && !strings.Contains(addr, strings.ToLower(in.homeLocality))
		},
	},
}

// AgeAt returns the completed years between birth and ref. A missing or
// future birth date yields ok=false.
func AgeAt(birth *time.Time, ref time.Time) (int, bool) {
	if birth == nil || birth.IsZero() {
		return 0, false
	}
	b := birth.UTC()
	r := ref.UTC()
	if b.After(r) {
		return 0, false
	}
	age := r.Year() - b.Year()
	if r.Month() < b.Month() || (r.Month() == b.Month() && r.Day() < b.Day()) {
		age--
	}
	return age, true
}
