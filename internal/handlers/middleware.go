package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/auth"
	"github.com/moh-surveys/survey-service/internal/services"
)

// AuthMiddleware validates the bearer token and stores the caller's identity
// in the request context for the handlers behind it. Each authenticated
// request also stamps the user's last-activity time.
func AuthMiddleware(tokens *auth.TokenService, users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing authorization header",
			})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header must be a bearer token",
			})
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		users.TouchActivity(c.Request.Context(), claims.UserID)
		c.Next()
	}
}
