package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nestkey/server/internal/auth"
	"nestkey/server/internal/models"
	"nestkey/server/internal/workflow"
)

const principalKey = "principal"

// RequireAuth resolves the bearer token into the caller's principal.
func (h *Handler) RequireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		return
	}

	claims, err := auth.ParseToken(h.jwtSecret, parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set(principalKey, workflow.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	})
	c.Next()
}

// RequireAdmin guards custodian-only endpoints.
func (h *Handler) RequireAdmin(c *gin.Context) {
	if principalFrom(c).Role != models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}

func principalFrom(c *gin.Context) workflow.Principal {
	principal, _ := c.Get(principalKey)
	p, _ := principal.(workflow.Principal)
	return p
}
