package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret", Issuer: "auth.pesantren", Audience: "santri-api"})

	token, expires, err := svc.IssueToken(models.JWTClaims{UserID: "wali-1", Role: models.RoleGuardian, StudentIDs: []string{"s-1"}}, time.Minute)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "wali-1", claims.UserID)
	assert.True(t, claims.CanAccessStudent("s-1"))
	assert.False(t, claims.CanAccessStudent("s-2"))
}

func TestAuthServiceRejectsWrongIssuer(t *testing.T) {
	issuer := NewAuthService(nil, AuthConfig{Secret: "secret", Issuer: "someone-else"})
	token, _, err := issuer.IssueToken(models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	svc := NewAuthService(nil, AuthConfig{Secret: "secret", Issuer: "auth.pesantren"})
	_, err = svc.ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret"})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := svc.IssueToken(models.JWTClaims{UserID: "u-1", Role: models.RoleStaff}, time.Minute)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.ValidateToken(expired)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(nil, AuthConfig{Secret: "other"})
	foreign, _, err := other.IssueToken(models.JWTClaims{UserID: "u-1", Role: models.RoleStaff}, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRequiresKnownRole(t *testing.T) {
	claims := jwt.MapClaims{"sub": "u-1", "role": "JANITOR", "exp": time.Now().Add(time.Minute).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAuthService(nil, AuthConfig{Secret: "secret"}).ValidateToken(token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
