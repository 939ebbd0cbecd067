package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by APIKeyAuthMiddleware for downstream handlers.
const (
	ctxKeyChannel = "ingestChannel"
	ctxKeyID      = "ingestKeyID"
)

// APIKeyAuthMiddleware validates the X-Ingest-API-Key header and sets the
// key's channel on the gin context. Handlers compare it against the channel
// carried by the event body.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Ingest-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		keyHash := HashKey(apiKey)
		key, err := repo.GetByHash(c.Request.Context(), keyHash)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(ctxKeyChannel, key.Channel)
		c.Set(ctxKeyID, key.ID)
		c.Next()
	}
}
