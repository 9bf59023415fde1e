package middleware

import (
	"net/http"
	"strings"

	"graminstore-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware checks the bearer token and stores the resolved
// identity in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userType", claims.UserType)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// RequireRole guards endpoints that are merchant-only or user-only.
func RequireRole(allowedType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, exists := c.Get("userType")
		if !exists || userType != allowedType {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves a bearer token when one is present but lets the
// request through either way. Checkout uses this: guest orders carry no
// token, registered users get their id attached to the order.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader != "" && tokenString != authHeader {
			if claims, err := auth.ValidateToken(tokenString); err == nil {
				c.Set("userID", claims.UserID)
				c.Set("userType", claims.UserType)
				c.Set("email", claims.Email)
			}
		}
		c.Next()
	}
}
