package handlers

import (
	"net/http"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps carries the shared handles each handler needs.
type Deps struct {
	DB     *gorm.DB
	Cache  *config.RedisStore
	Logger *logrus.Logger
}

func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsValidationErr(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case utils.IsNotFoundErr(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsConflictErr(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsInfrastructureErr(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
