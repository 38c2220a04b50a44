package models

import "gorm.io/gorm"

// Migrate applies the schema. Ordering matters for foreign keys.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Store{},
		&InvoiceSequence{},
		&Customer{},
		&Invoice{},
		&LineItem{},
		&Payment{},
		&SyncQueueRecord{},
		&IdempotencyKey{},
	)
}
