package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"telecare-server/internal/config"
	"telecare-server/internal/utils"
)

// CronKeyMiddleware guards internally-triggered jobs behind a shared secret.
// The key is accepted as ?key= or the X-Cron-Key header. An empty configured
// key leaves the endpoint open, which is only acceptable in development.
func CronKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.CronKey == "" {
			c.Next()
			return
		}
		key := c.Query("key")
		if key == "" {
			key = c.GetHeader("X-Cron-Key")
		}
		if subtle.ConstantTimeCompare([]byte(cfg.CronKey), []byte(key)) != 1 {
			utils.Forbidden(c, "Invalid cron key")
			c.Abort()
			return
		}
		c.Next()
	}
}
