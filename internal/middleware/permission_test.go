package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
)

func permissionRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		claims := &iauth.Claims{
			UserID:      "user-1",
			Role:        role,
			Permissions: permissions.Grants(role),
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	})
	router.DELETE("/deals/:id",
		RequirePermission(permissions.ResourceDeals, permissions.ActionDelete),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)
	return router
}

func TestRequirePermissionAllowsGrantedRole(t *testing.T) {
	router := permissionRouter("admin")

	req := httptest.NewRequest(http.MethodDelete, "/deals/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequirePermissionDeniesMissingGrant(t *testing.T) {
	for _, role := range []string{"sales", "finance", "viewer"} {
		router := permissionRouter(role)

		req := httptest.NewRequest(http.MethodDelete, "/deals/1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code, "role %s", role)
	}
}

func TestRequirePermissionWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", RequirePermission(permissions.ResourceDeals, permissions.ActionRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
