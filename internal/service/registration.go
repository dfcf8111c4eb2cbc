package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// Draft is an immutable registration snapshot: the student's profile plus
// their guardians. Every successful Apply returns a new Draft with the
// version incremented; the receiver is never modified.
type Draft struct {
	version   int
	student   models.Student
	guardians []models.Guardian
}

// DraftUpdate mutates a private copy of a draft during Apply.
type DraftUpdate func(*Draft) error

// NewDraft returns an empty draft at version 0.
func NewDraft() Draft {
	return Draft{student: models.Student{Category: models.CategoryReguler, SocialStatus: models.SocialLengkap}}
}

// Version counts the successful Apply calls that produced this draft.
func (d Draft) Version() int { return d.version }

// Student returns the student part of the draft.
func (d Draft) Student() models.Student { return d.student }

// Guardians returns a copy of the draft's guardians.
func (d Draft) Guardians() []models.Guardian {
	out := make([]models.Guardian, len(d.guardians))
	copy(out, d.guardians)
	return out
}

// Profile derives the resolver snapshot of the draft.
func (d Draft) Profile() models.StudentProfile {
	return models.StudentDetail{Student: d.student, Guardians: d.guardians}.Profile()
}

// Apply runs updates against a copy of d. On error d is returned unchanged.
func (d Draft) Apply(updates ...DraftUpdate) (Draft, error) {
	next := Draft{version: d.version, student: d.student, guardians: d.Guardians()}
	for _, update := range updates {
		if err := update(&next); err != nil {
			return d, err
		}
	}
	next.version++
	return next, nil
}

// SetIdentity sets NIS and full name.
func SetIdentity(nis, fullName string) DraftUpdate {
	return func(d *Draft) error {
		d.student.NIS = strings.TrimSpace(nis)
		d.student.FullName = strings.TrimSpace(fullName)
		return nil
	}
}

// SetCategory parses a category label. The resident flag must be applied
// first for a bare "Binaan" label to split correctly.
func SetCategory(label string) DraftUpdate {
	return func(d *Draft) error {
		d.student.Category, _ = models.ParseCategory(label, d.student.Resident)
		return nil
	}
}

// SetSocialStatus parses a social status label.
func SetSocialStatus(label string) DraftUpdate {
	return func(d *Draft) error {
		d.student.SocialStatus, _ = models.ParseSocialStatus(label)
		return nil
	}
}

// SetBirthDate sets or clears the birth date.
func SetBirthDate(birth *time.Time) DraftUpdate {
	return func(d *Draft) error {
		d.student.BirthDate = birth
		return nil
	}
}

// SetAddress sets the home address.
func SetAddress(address string) DraftUpdate {
	return func(d *Draft) error {
		d.student.Address = strings.TrimSpace(address)
		return nil
	}
}

// SetResident sets or clears the mukim flag.
func SetResident(resident *bool) DraftUpdate {
	return func(d *Draft) error {
		d.student.Resident = resident
		return nil
	}
}

// AddGuardian appends g. A primary guardian demotes any previous primary.
func AddGuardian(g models.Guardian) DraftUpdate {
	return func(d *Draft) error {
		g.FullName = strings.TrimSpace(g.FullName)
		g.Relationship = strings.TrimSpace(g.Relationship)
		if g.FullName == "" {
			return fmt.Errorf("guardian name is required")
		}
		if g.IsPrimary {
			for i := range d.guardians {
				d.guardians[i].IsPrimary = false
			}
		}
		d.guardians = append(d.guardians, g)
		return nil
	}
}

// removeGuardian drops the guardian at index.
func removeGuardian(index int) DraftUpdate {
	return func(d *Draft) error {
		if index < 0 || index >= len(d.guardians) {
			return fmt.Errorf("guardian index %d out of range", index)
		}
		d.guardians = append(d.guardians[:index], d.guardians[index+1:]...)
		return nil
	}
}

// SetPrimaryGuardian marks the guardian at index as the only primary one.
func SetPrimaryGuardian(index int) DraftUpdate {
	return func(d *Draft) error {
		if index < 0 || index >= len(d.guardians) {
			return fmt.Errorf("guardian index %d out of range", index)
		}
		for i := range d.guardians {
			d.guardians[i].IsPrimary = i == index
		}
		return nil
	}
}
