package devicesync

import (
	"context"
	"time"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
	"gorm.io/gorm"
)

// ChangesSince returns everything touched after the watermark, oldest first,
// capped per entity. ServerTime is captured before the reads so a client
// polling with it can only over-fetch, never miss a row.
func ChangesSince(ctx context.Context, db *gorm.DB, since time.Time) (*ChangeFeedResponse, error) {
	resp := &ChangeFeedResponse{
		Success: true,
		Since:   since.UTC().Format(time.RFC3339),
		Data: ChangeFeedData{
			Invoices:  []InvoiceChange{},
			Customers: []CustomerChange{},
			Payments:  []PaymentChange{},
		},
		ServerTime: time.Now().UTC(),
	}

	if err := db.WithContext(ctx).Model(&models.Invoice{}).
		Where("updated_at > ?", since).
		Order("updated_at, id").
		Limit(changeFeedLimit).
		Find(&resp.Data.Invoices).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	if err := db.WithContext(ctx).Model(&models.Customer{}).
		Where("updated_at > ?", since).
		Order("updated_at, id").
		Limit(changeFeedLimit).
		Find(&resp.Data.Customers).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	if err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("updated_at > ?", since).
		Order("updated_at, id").
		Limit(changeFeedLimit).
		Find(&resp.Data.Payments).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return resp, nil
}
