// Package requirement computes which documents a santri must submit and how
// far along the checklist they are.
package requirement

import "github.com/noah-isme/santri-dokumen-api/internal/models"

// Stable requirement codes. Display names never double as identifiers.
const (
	CodePasFoto            = "PAS_FOTO"
	CodePasFoto4x6         = "PAS_FOTO_4X6"
	CodeAktaLahir          = "AKTA_LAHIR"
	CodeKartuKeluarga      = "KARTU_KELUARGA"
	CodeAktaLahirAtauKK    = "AKTA_LAHIR_ATAU_KK"
	CodeKTPSantri          = "KTP_SANTRI"
	CodeKTPWaliUtama       = "KTP_WALI_UTAMA"
	CodeKTPWaliPendamping  = "KTP_WALI_PENDAMPING"
	CodeSuratSehat         = "SURAT_SEHAT"
	CodeAktaKematianAyah   = "AKTA_KEMATIAN_AYAH"
	CodeAktaKematianIbu    = "AKTA_KEMATIAN_IBU"
	CodeSKTM               = "SKTM"
	CodeSuratDomisili      = "SURAT_DOMISILI"
	CodeIjazah             = "IJAZAH"
	CodeTranskrip          = "TRANSKRIP"
	CodeSertifikatPrestasi = "SERTIFIKAT_PRESTASI"
)

const (
	formatPhoto    = "JPG/PNG"
	formatDocument = "PDF/JPG/PNG"
)

type entry struct {
	name   string
	format string
}

var catalog = map[string]entry{
	CodePasFoto:            {"Pas Foto 3x4", formatPhoto},
	CodePasFoto4x6:         {"Pas Foto 4x6", formatPhoto},
	CodeAktaLahir:          {"Akta Kelahiran", formatDocument},
	CodeKartuKeluarga:      {"Kartu Keluarga", formatDocument},
	CodeAktaLahirAtauKK:    {"Akta Kelahiran atau Kartu Keluarga", formatDocument},
	CodeKTPSantri:          {"KTP Santri", formatDocument},
	CodeKTPWaliUtama:       {"KTP Wali Utama", formatDocument},
	CodeKTPWaliPendamping:  {"KTP Wali Pendamping", formatDocument},
	CodeSuratSehat:         {"Surat Keterangan Sehat", formatDocument},
	CodeAktaKematianAyah:   {"Akta Kematian Ayah", formatDocument},
	CodeAktaKematianIbu:    {"Akta Kematian Ibu", formatDocument},
	CodeSKTM:               {"Surat Keterangan Tidak Mampu (SKTM)", formatDocument},
	CodeSuratDomisili:      {"Surat Keterangan Domisili", formatDocument},
	CodeIjazah:             {"Ijazah Terakhir", formatDocument},
	CodeTranskrip:          {"Transkrip Nilai", formatDocument},
	CodeSertifikatPrestasi: {"Sertifikat Prestasi", formatDocument},
}

// Known reports whether code exists in the catalog.
func Known(code string) bool {
	_, ok := catalog[code]
	return ok
}

// DisplayName returns the human label for code, or the code itself.
func DisplayName(code string) string {
	if e, ok := catalog[code]; ok {
		return e.name
	}
	return code
}

func describe(code string, tag models.RequirementTag, condition string) models.DocumentRequirement {
	e, ok := catalog[code]
	if !ok {
		e = entry{name: code, format: formatDocument}
	}
	return models.DocumentRequirement{
		Code:      code,
		Name:      e.name,
		Tag:       tag,
		Condition: condition,
		Format:    e.format,
	}
}
