package models

import (
	"encoding/json"
	"time"

	"github.com/easybuilders/merchantpro_backend/utils"
)

// QueuedItem is the wire form of one offline action. Payload stays opaque
// until the (action, entity_type) pair selects a concrete input type.
type QueuedItem struct {
	ClientKey  string          `json:"client_key"`
	Action     SyncAction      `json:"action" binding:"required"`
	EntityType SyncEntityType  `json:"entity_type" binding:"required"`
	EntityId   int             `json:"entity_id"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
}

// ValidateEnvelope checks the routing fields; payload contents are checked
// later by the per-entity handler.
func (item *QueuedItem) ValidateEnvelope() error {
	if !item.Action.Valid() {
		return utils.NewValidationError("invalid action %q", item.Action)
	}
	if !item.EntityType.Valid() {
		return utils.NewValidationError("invalid entity_type %q", item.EntityType)
	}
	if item.Action == SyncActionUpdate && item.EntityId <= 0 {
		return utils.NewValidationError("update requires entity_id")
	}
	if len(item.Payload) == 0 {
		return utils.NewValidationError("payload is required")
	}
	return nil
}

// SyncQueueRecord is the server-side reconciliation log: one row per
// received item, success or failure.
type SyncQueueRecord struct {
	ID         int            `gorm:"primary_key" json:"id"`
	DeviceId   string         `gorm:"size:64;index" json:"device_id"`
	ClientKey  string         `gorm:"size:255;index" json:"client_key"`
	Action     SyncAction     `gorm:"size:20;not null" json:"action"`
	EntityType SyncEntityType `gorm:"size:20;not null" json:"entity_type"`
	EntityId   *int           `json:"entity_id"`
	Payload    []byte         `gorm:"type:json" json:"payload"`
	Succeeded  bool           `gorm:"not null" json:"succeeded"`
	Error      string         `gorm:"type:text" json:"error"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
