package requirement

import (
	"math"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// Compute derives progress for reqs from a student's records. A requirement
// is satisfied when any active record for its code is VALID; optional
// requirements are badged but never counted. The badge reflects the VALID
// record when one exists, otherwise the newest active record.
func Compute(reqs []models.DocumentRequirement, records []models.DocumentRecord) models.CompletenessResult {
	active := make(map[string]models.DocumentRecord, len(records))
	for _, rec := range records {
		if !rec.Active {
			continue
		}
		if prev, ok := active[rec.RequirementCode]; ok && !supersedes(rec, prev) {
			continue
		}
		active[rec.RequirementCode] = rec
	}

	result := models.CompletenessResult{Items: make([]models.CompletenessItem, 0, len(reqs))}
	for _, req := range reqs {
		item := models.CompletenessItem{Code: req.Code, Name: req.Name, Tag: req.Tag, Badge: models.BadgeMissing}
		rec, ok := active[req.Code]
		if ok {
			item.Badge = string(rec.Status)
			item.RecordID = rec.ID
		}
		result.Items = append(result.Items, item)

		if !req.Tag.Counts() {
			continue
		}
		result.Total++
		if ok && rec.Status == models.DocumentValid {
			result.Completed++
		}
	}

	result.Percentage = Percentage(result.Completed, result.Total)
	return result
}

func supersedes(rec, prev models.DocumentRecord) bool {
	recValid := rec.Status == models.DocumentValid
	prevValid := prev.Status == models.DocumentValid
	if recValid != prevValid {
		return recValid
	}
	return !prev.UploadedAt.After(rec.UploadedAt)
}

// Percentage is round(completed/total*100) clamped to [0,100]; 100 when total is 0.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(float64(completed) * 100 / float64(total)))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
