package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndStudentScope(t *testing.T) {
	guardian := &models.JWTClaims{UserID: "wali-1", Role: models.RoleGuardian, StudentIDs: []string{"s-1"}}
	r := gin.New()
	r.GET("/students/:id", JWT(validatorStub{claims: guardian}), StudentScope("id"), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/students/s-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/students/s-1", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/students/s-1", "Bearer bad").Code)

	ok := perform(r, http.MethodGet, "/students/s-1", "Bearer good")
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "wali-1", ok.Body.String())

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/students/s-2", "Bearer good").Code)
}

func TestRBAC(t *testing.T) {
	for role, want := range map[models.UserRole]int{
		models.RoleAdmin:    http.StatusOK,
		models.RoleStaff:    http.StatusOK,
		models.RoleGuardian: http.StatusForbidden,
	} {
		r := gin.New()
		r.POST("/documents/:id/status", JWT(validatorStub{claims: &models.JWTClaims{UserID: "u", Role: role}}),
			RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff),
			func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, want, perform(r, http.MethodPost, "/documents/d-1/status", "Bearer good").Code, string(role))
	}

	r := gin.New()
	r.GET("/x", RBAC(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/x", "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/students/s-9", "")
	perform(r, http.MethodGet, "/nope", "")
	require.Len(t, observer.paths, 2)
	assert.Equal(t, "/students/:id", observer.paths[0])
	assert.Equal(t, "unmatched", observer.paths[1])
	assert.Equal(t, http.StatusNotFound, observer.statuses[1])
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	r := gin.New()
	r.Use(ResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/", "")
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
}
