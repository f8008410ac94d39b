package middleware

import (
	"net/http"
	"strings"

	"mesa-system/internal/tenant"
	"mesa-system/internal/utils"

	"github.com/gin-gonic/gin"
)

const tenantContextKey = "tenant_context"

// JWTAuth accepts a bearer token issued at login and stores the caller
// identity for TenantContext.
func JWTAuth(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing bearer token",
			})
			return
		}

		claims, err := issuer.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(tenantContextKey, claims.TenantContext())
		c.Next()
	}
}

// TenantContext returns the caller set by JWTAuth, or the zero Context for
// unauthenticated routes.
func TenantContext(c *gin.Context) tenant.Context {
	if v, ok := c.Get(tenantContextKey); ok {
		if tc, ok := v.(tenant.Context); ok {
			return tc
		}
	}
	return tenant.Context{}
}
