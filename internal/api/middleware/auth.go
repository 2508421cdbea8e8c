package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/service"
)

// GetAPIKey extracts the raw API key from the X-API-Key header or a Bearer
// Authorization header.
func GetAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}

	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}

	return ""
}

// RequireAPIKey is a middleware that requires a valid API key.
func RequireAPIKey(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := GetAPIKey(c)
		if rawKey == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"type": "error",
				"error": gin.H{
					"type":    "authentication_error",
					"message": "Missing API key",
				},
			})
			return
		}

		key, err := authService.ValidateAPIKey(c.Request.Context(), rawKey)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{
				"type": "error",
				"error": gin.H{
					"type":    "authentication_error",
					"message": "Invalid API key",
				},
			})
			return
		}

		c.Set("api_key_name", key.Name)
		c.Next()
	}
}

// RequireAdmin is a middleware that requires admin Basic credentials.
func RequireAdmin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="admin"`)
			c.AbortWithStatusJSON(401, gin.H{
				"type": "error",
				"error": gin.H{
					"type":    "authentication_error",
					"message": "Admin credentials required",
				},
			})
			return
		}

		user, err := authService.AuthenticateAdmin(c.Request.Context(), username, password)
		if err != nil {
			c.AbortWithStatusJSON(403, gin.H{
				"type": "error",
				"error": gin.H{
					"type":    "permission_error",
					"message": "Invalid admin credentials",
				},
			})
			return
		}

		c.Set("admin_user", user.Username)
		c.Next()
	}
}
