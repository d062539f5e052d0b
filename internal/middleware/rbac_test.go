package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smd-edu/syllabus-api/internal/models"
)

func rbacStatus(t *testing.T, claims *models.JWTClaims, roles ...models.UserRole) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/",
		func(c *gin.Context) {
			if claims != nil {
				c.Set(ContextUserKey, claims)
			}
		},
		RequireRoles(roles...),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Code
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	code := rbacStatus(t, &models.JWTClaims{UserID: "u1", Role: models.RoleHOD}, models.RoleHOD, models.RoleAdmin)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	code := rbacStatus(t, &models.JWTClaims{UserID: "u1", Role: models.RoleLecturer}, models.RoleHOD)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequireRolesRejectsUnknownRole(t *testing.T) {
	code := rbacStatus(t, &models.JWTClaims{UserID: "u1", Role: "STUDENT"}, models.RoleHOD, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequireRolesNormalizesRoleCase(t *testing.T) {
	code := rbacStatus(t, &models.JWTClaims{UserID: "u1", Role: "hod"}, models.RoleHOD)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequireRolesRequiresClaims(t *testing.T) {
	code := rbacStatus(t, nil, models.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, code)
}
