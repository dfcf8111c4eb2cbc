package dto

// SetStatusRequest is the body of PATCH /documents/:id/status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=1000"`
}
