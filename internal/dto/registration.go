package dto

// GuardianRequest is one wali entry of a registration.
type GuardianRequest struct {
	FullName     string `json:"fullName" validate:"notblank,max=150"`
	Relationship string `json:"relationship" validate:"required,max=50"`
	NIK          string `json:"nik" validate:"omitempty,numeric,len=16"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Primary      bool   `json:"primary"`
}

// RegistrationRequest is the body of POST /registrations and
// POST /registrations/preview.
type RegistrationRequest struct {
	NIS          string            `json:"nis" validate:"required,max=32"`
	FullName     string            `json:"fullName" validate:"notblank,max=150"`
	Category     string            `json:"category" validate:"required"`
	SocialStatus string            `json:"socialStatus"`
	BirthDate    string            `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Address      string            `json:"address" validate:"max=500"`
	Resident     *bool             `json:"resident"`
	Guardians    []GuardianRequest `json:"guardians" validate:"max=4,dive"`
}
