package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// firstSequenceNumber is the value handed out by a freshly created counter.
const firstSequenceNumber = 1001

// InvoiceSequence holds the next document number for one (store, type) pair.
// Exactly one row per pair, created lazily on first allocation.
type InvoiceSequence struct {
	ID          int         `gorm:"primary_key" json:"id"`
	StoreCode   string      `gorm:"size:10;not null;uniqueIndex:uniq_invoice_seq,priority:1" json:"store_code"`
	InvoiceType InvoiceType `gorm:"size:20;not null;uniqueIndex:uniq_invoice_seq,priority:2" json:"invoice_type"`
	Prefix      string      `gorm:"size:10" json:"prefix"`
	NextNumber  int64       `gorm:"not null;default:1001" json:"next_number"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func FormatInvoiceNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// NextInvoiceNumber reserves the next number for (storeCode, invoiceType).
//
// It must be called inside the transaction that inserts the owning invoice:
// the counter increment then commits or rolls back atomically with the
// insert. The row lock serializes concurrent allocators per pair; unrelated
// pairs never block each other. A reservation that commits and whose invoice
// later fails leaves a gap, which is accepted.
func NextInvoiceNumber(ctx context.Context, tx *gorm.DB, cache *config.RedisStore, storeCode string, invoiceType InvoiceType) (string, int64, error) {
	var seq InvoiceSequence
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_code = ? AND invoice_type = ?", storeCode, invoiceType).
		First(&seq).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = InvoiceSequence{
			StoreCode:   storeCode,
			InvoiceType: invoiceType,
			NextNumber:  firstSequenceNumber,
		}
		if cerr := tx.WithContext(ctx).Create(&seq).Error; cerr != nil {
			if !utils.IsDuplicateKeyErr(cerr) {
				return "", 0, cerr
			}
			// Lost the creation race; lock the winner's row.
			if lerr := tx.WithContext(ctx).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("store_code = ? AND invoice_type = ?", storeCode, invoiceType).
				First(&seq).Error; lerr != nil {
				return "", 0, lerr
			}
		}
	} else if err != nil {
		return "", 0, err
	}

	current := seq.NextNumber
	if err := tx.WithContext(ctx).Model(&InvoiceSequence{}).
		Where("id = ?", seq.ID).
		Update("next_number", current+1).Error; err != nil {
		return "", 0, err
	}

	prefix := seq.Prefix
	if prefix == "" {
		prefix, err = transactionPrefix(ctx, tx, cache, storeCode, invoiceType)
		if err != nil {
			return "", 0, err
		}
	}
	return FormatInvoiceNumber(prefix, current), current, nil
}
