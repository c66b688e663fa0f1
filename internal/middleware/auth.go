package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/observability"
	"go.uber.org/zap"
)

// RequireToken validates the shared bearer token on write endpoints.
// Comparison is constant-time so the token cannot be probed byte by
// byte. The token also rides in the X-Sync-Token header for callers
// that cannot set Authorization.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := bearerToken(c)
		if presented == "" {
			presented = c.GetHeader("X-Sync-Token")
		}
		if presented == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication token is required"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			observability.Logger().Warn("rejected request with invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
				zap.String("token", observability.MaskToken(presented)),
				zap.Error(models.ErrSecurityCheckFailed))
			c.JSON(http.StatusForbidden, gin.H{"error": models.ErrSecurityCheckFailed.Error()})
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
