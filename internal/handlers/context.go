package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func currentClaims(c *gin.Context) (*iauth.Claims, bool) {
	return middleware.ClaimsFromContext(c)
}

func currentUserID(c *gin.Context) string {
	claims, ok := currentClaims(c)
	if !ok {
		return ""
	}
	return claims.UserID
}
