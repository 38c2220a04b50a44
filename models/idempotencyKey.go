package models

import "time"

// IdempotencyKey provides durable, DB-backed idempotency for replayed sync
// batches. Unique constraint: (device_id, handler_name, client_key).
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	DeviceId    string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"device_id"`
	HandlerName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"handler_name"`
	ClientKey   string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"client_key"`
	Status      IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	EntityId    *int              `json:"entity_id"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
