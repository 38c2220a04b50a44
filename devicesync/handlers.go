package devicesync

import (
	"net/http"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PushHandler receives an offline batch and reconciles it. One lock per
// device keeps two flushes of the same queue from interleaving; the lock is
// best effort and the handler proceeds without one when redis is down.
func PushHandler(db *gorm.DB, cache *config.RedisStore, logger *logrus.Logger) gin.HandlerFunc {
	reconciler := NewReconciler(db, cache, logger)
	return func(c *gin.Context) {
		var req SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "device_id and queue are required"})
			return
		}
		if strings.TrimSpace(req.DeviceId) == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "device_id is required"})
			return
		}

		if locker := cache.Locker(); locker != nil {
			lock, err := locker.Obtain(c.Request.Context(), "devicesync:"+req.DeviceId, 2*time.Minute, nil)
			if err == redislock.ErrNotObtained {
				c.JSON(http.StatusConflict, gin.H{"error": "a sync for this device is already running"})
				return
			}
			if err == nil {
				defer lock.Release(c.Request.Context())
			}
		}

		resp, err := reconciler.Process(c.Request.Context(), &req)
		if err != nil {
			config.LogError(logger, "devicesync", "PushHandler", "sync failed", map[string]interface{}{
				"device_id": req.DeviceId,
			}, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync temporarily unavailable"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// PullHandler serves the change feed. `since` is required and accepts a date
// or RFC3339 timestamp.
func PullHandler(db *gorm.DB, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Query("since"))
		if raw == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "since is required"})
			return
		}
		since, err := utils.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid since timestamp"})
			return
		}

		resp, err := ChangesSince(c.Request.Context(), db, since)
		if err != nil {
			config.LogError(logger, "devicesync", "PullHandler", "change feed failed", nil, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed temporarily unavailable"})
			return
		}
		// Echo the caller's literal since value.
		resp.Since = raw
		c.JSON(http.StatusOK, resp)
	}
}
