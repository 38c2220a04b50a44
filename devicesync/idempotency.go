package devicesync

import (
	"errors"
	"time"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
	"gorm.io/gorm"
)

var ErrSyncInProgress = errors.New("sync item in progress")

// beginIdempotency inserts STARTED. If SUCCEEDED exists, returns the prior
// key with skip=true meaning "replay the stored outcome, do not re-apply".
func beginIdempotency(tx *gorm.DB, deviceId, handlerName, clientKey string) (skip bool, prior *models.IdempotencyKey, err error) {
	key := models.IdempotencyKey{
		DeviceId:    deviceId,
		HandlerName: handlerName,
		ClientKey:   clientKey,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil, nil
	} else if !utils.IsDuplicateKeyErr(err) {
		return false, nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("device_id = ? AND handler_name = ? AND client_key = ?", deviceId, handlerName, clientKey).
		First(&existing).Error; err != nil {
		return false, nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, &existing, nil
	case models.IdempotencyStatusStarted:
		// If another flush is currently applying this item, let the device retry.
		// A stale row means a crashed attempt; reuse it.
		if time.Since(existing.UpdatedAt) < 5*time.Minute {
			return false, nil, ErrSyncInProgress
		}
		return false, nil, resetIdempotency(tx, existing.ID)
	default:
		return false, nil, resetIdempotency(tx, existing.ID)
	}
}

func resetIdempotency(tx *gorm.DB, id int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func markIdempotencySucceeded(tx *gorm.DB, deviceId, handlerName, clientKey string, entityId *int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("device_id = ? AND handler_name = ? AND client_key = ?", deviceId, handlerName, clientKey).
		Updates(map[string]interface{}{
			"status":     models.IdempotencyStatusSucceeded,
			"entity_id":  entityId,
			"last_error": nil,
		}).Error
}

func markIdempotencyFailed(tx *gorm.DB, deviceId, handlerName, clientKey string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("device_id = ? AND handler_name = ? AND client_key = ?", deviceId, handlerName, clientKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
