package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	"github.com/noah-isme/santri-dokumen-api/pkg/database"
)

func init() {
	color.NoColor = true
}

func TestRenderRequirements(t *testing.T) {
	var buf bytes.Buffer
	reqs := requirement.NewResolver().Resolve(models.StudentProfile{Category: models.CategoryBinaanNonMukim, SocialStatus: models.SocialDhuafa})
	renderRequirements(&buf, reqs)

	out := buf.String()
	assert.Contains(t, out, "KTP_WALI_UTAMA")
	assert.Contains(t, out, "SKTM")
	assert.Contains(t, out, "CONDITION")
}

func TestRenderCompleteness(t *testing.T) {
	var buf bytes.Buffer
	renderCompleteness(&buf, &models.CompletenessResult{Completed: 1, Total: 2, Percentage: 50, Items: []models.CompletenessItem{
		{Code: "PAS_FOTO", Tag: models.TagRequired, Badge: "VALID"},
		{Code: "AKTA_LAHIR_ATAU_KK", Tag: models.TagRequired, Badge: models.BadgeMissing},
	}})
	out := buf.String()
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "50%")
}

func TestRenderCohortFiltersBelow(t *testing.T) {
	rows := []service.StudentCompleteness{
		{Student: models.Student{NIS: "001", FullName: "Ahmad"}, Result: models.CompletenessResult{Percentage: 40}},
		{Student: models.Student{NIS: "002", FullName: "Budi"}, Result: models.CompletenessResult{Percentage: 100}},
	}
	var buf bytes.Buffer
	assert.Equal(t, 1, renderCohort(&buf, rows, 80))
	assert.Contains(t, buf.String(), "Ahmad")
	assert.NotContains(t, buf.String(), "Budi")

	buf.Reset()
	assert.Equal(t, 2, renderCohort(&buf, rows, 0))
}

func TestRenderMigrations(t *testing.T) {
	var buf bytes.Buffer
	renderMigrations(&buf, []database.MigrationStatus{{ID: "0001_students.sql", Applied: true, AppliedAt: "2025-07-01"}, {ID: "0002_document_records.sql"}})
	assert.Contains(t, buf.String(), "pending")
	assert.Contains(t, buf.String(), "0001_students.sql")
}
