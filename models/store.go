package models

import (
	"context"
	"errors"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/utils"
	"gorm.io/gorm"
)

type Store struct {
	Code             string    `gorm:"primary_key;size:10" json:"code"`
	Name             string    `gorm:"size:255;not null" json:"name" binding:"required"`
	InvoicePrefix    string    `gorm:"size:10" json:"invoice_prefix"`
	QuotePrefix      string    `gorm:"size:10" json:"quote_prefix"`
	CreditNotePrefix string    `gorm:"size:10" json:"credit_note_prefix"`
	Currency         string    `gorm:"size:10;default:ZAR" json:"currency"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PrefixFor returns the configured document prefix for a type, falling back
// to the first three letters of the store code.
func (s Store) PrefixFor(invoiceType InvoiceType) string {
	var prefix string
	switch invoiceType {
	case InvoiceTypeQuote:
		prefix = s.QuotePrefix
	case InvoiceTypeCreditNote:
		prefix = s.CreditNotePrefix
	default:
		prefix = s.InvoicePrefix
	}
	if prefix == "" {
		prefix = utils.DefaultPrefix(s.Code)
	}
	return prefix
}

func GetStore(ctx context.Context, db *gorm.DB, code string) (*Store, error) {
	var store Store
	if err := db.WithContext(ctx).Where("code = ?", code).First(&store).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "store")
	}
	return &store, nil
}

// transactionPrefix resolves the document prefix for (storeCode, invoiceType),
// consulting the redis prefix map first and populating it on a miss.
func transactionPrefix(ctx context.Context, db *gorm.DB, cache *config.RedisStore, storeCode string, invoiceType InvoiceType) (string, error) {
	prefixes := make(map[InvoiceType]string)
	redisKey := "storePrefixMap:" + storeCode

	exists, err := cache.GetObject(ctx, redisKey, &prefixes)
	if err != nil {
		return "", err
	}
	if !exists {
		var store Store
		if err := db.WithContext(ctx).Where("code = ?", storeCode).First(&store).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Unknown store still gets a deterministic prefix.
				return utils.DefaultPrefix(storeCode), nil
			}
			return "", err
		}
		prefixes[InvoiceTypeInvoice] = store.PrefixFor(InvoiceTypeInvoice)
		prefixes[InvoiceTypeQuote] = store.PrefixFor(InvoiceTypeQuote)
		prefixes[InvoiceTypeCreditNote] = store.PrefixFor(InvoiceTypeCreditNote)
		if err := cache.SetObject(ctx, redisKey, &prefixes, 0); err != nil {
			return "", err
		}
	}

	prefix, ok := prefixes[invoiceType]
	if !ok || prefix == "" {
		return utils.DefaultPrefix(storeCode), nil
	}
	return prefix, nil
}
