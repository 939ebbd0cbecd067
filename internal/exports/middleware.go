package exports

import (
	"net/http"
	"strings"

	"leadinbox_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// ctxKeyExportCaller carries the download token subject for handlers.
const ctxKeyExportCaller = "exportCaller"

// TokenAuthMiddleware validates signed download tokens on the export
// endpoints. The token rides in the Authorization header or, for plain
// browser downloads, in the token query parameter.
func TokenAuthMiddleware(cfg config.ExportConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing export token"})
			return
		}

		subject, err := VerifyToken(cfg, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid export token"})
			return
		}

		c.Set(ctxKeyExportCaller, subject)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}
