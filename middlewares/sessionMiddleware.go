package middlewares

import (
	"strings"

	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware lifts the device header into the request context so the
// sync layer can attribute work without re-reading headers.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if deviceId := strings.TrimSpace(c.GetHeader("x-device-id")); deviceId != "" {
			c.Request = c.Request.WithContext(utils.SetDeviceIdInContext(c.Request.Context(), deviceId))
		}
		c.Next()
	}
}
