package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles carried in provider-issued tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleStaff      UserRole = "STAFF"
	RoleGuardian   UserRole = "GUARDIAN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleStaff, RoleGuardian:
		return true
	}
	return false
}

// JWTClaims is the bearer token payload issued by the auth provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	// StudentIDs limits a GUARDIAN token to the students in their care.
	StudentIDs []string `json:"student_ids,omitempty"`
	jwt.RegisteredClaims
}

// CanAccessStudent reports whether the caller may read or upload for studentID.
func (c *JWTClaims) CanAccessStudent(studentID string) bool {
	if c == nil {
		return false
	}
	if c.Role != RoleGuardian {
		return true
	}
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
