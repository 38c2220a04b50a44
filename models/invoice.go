package models

import (
	"context"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            int           `gorm:"primary_key" json:"id"`
	StoreCode     string        `gorm:"size:10;not null;uniqueIndex:uniq_invoice_number,priority:1" json:"store_code"`
	InvoiceType   InvoiceType   `gorm:"size:20;not null;uniqueIndex:uniq_invoice_number,priority:2" json:"type"`
	InvoiceNumber string        `gorm:"size:50;not null;uniqueIndex:uniq_invoice_number,priority:3" json:"invoice_number"`
	SequenceNo    int64         `gorm:"not null" json:"sequence_no"`
	Status        InvoiceStatus `gorm:"type:enum('draft','sent','part_paid','paid','cancelled');not null;default:draft" json:"status"`
	CustomerId    int           `gorm:"index;not null" json:"customer_id"`
	InvoiceDate   time.Time     `gorm:"not null" json:"invoice_date"`
	DueDate       time.Time     `gorm:"not null" json:"due_date"`
	Notes         string        `gorm:"type:text" json:"notes"`
	Terms         string        `gorm:"type:text" json:"terms"`
	Currency      string        `gorm:"size:10;default:ZAR" json:"currency"`
	Items         []LineItem    `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"items"`
	Payments      []Payment     `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"payments"`

	Subtotal         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	VatTotal         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_total"`
	Total            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	VatBreakdownJSON []byte          `gorm:"type:json" json:"vat_breakdown"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

type LineItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	LineOrder   int             `gorm:"not null;default:0" json:"line_order"`
	ProductCode *string         `gorm:"size:100" json:"product_code"`
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_pct"`
	VatRate     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_rate"`
	LineNet     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_net"`
	VatAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_amount"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	StoreCode   string        `json:"store_code" binding:"required"`
	InvoiceType InvoiceType   `json:"type"`
	CustomerId  int           `json:"customer_id" binding:"required"`
	InvoiceDate string        `json:"invoice_date" binding:"required"`
	DueDate     string        `json:"due_date" binding:"required"`
	Notes       string        `json:"notes"`
	Terms       string        `json:"terms"`
	Currency    string        `json:"currency"`
	Status      InvoiceStatus `json:"status"`
	Items       []NewLineItem `json:"items" binding:"required,min=1,dive"`
}

type NewLineItem struct {
	LineOrder   int             `json:"line_order"`
	ProductCode *string         `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	VatRate     decimal.Decimal `json:"vat_rate"`
}

// UpdateInvoiceInput is a partial overwrite: nil means "leave unchanged".
// A non-nil Items slice replaces the whole item set.
type UpdateInvoiceInput struct {
	CustomerId  *int           `json:"customer_id"`
	InvoiceDate *string        `json:"invoice_date"`
	DueDate     *string        `json:"due_date"`
	Status      *InvoiceStatus `json:"status"`
	Notes       *string        `json:"notes"`
	Terms       *string        `json:"terms"`
	Items       []NewLineItem  `json:"items"`
}

func (input *NewInvoice) normalize() {
	if input.InvoiceType == "" {
		input.InvoiceType = InvoiceTypeInvoice
	}
	if input.Status == "" {
		input.Status = InvoiceStatusDraft
	}
	if input.Currency == "" {
		input.Currency = "ZAR"
	}
}

func (input *NewInvoice) validate(ctx context.Context, tx *gorm.DB) (invoiceDate, dueDate time.Time, err error) {
	if !input.InvoiceType.Valid() {
		return invoiceDate, dueDate, utils.NewValidationError("invalid invoice type %q", input.InvoiceType)
	}
	if input.Status != InvoiceStatusDraft && input.Status != InvoiceStatusSent {
		return invoiceDate, dueDate, utils.NewValidationError("an invoice must be created as draft or sent")
	}
	if len(input.Items) == 0 {
		return invoiceDate, dueDate, utils.NewValidationError("at least one line item is required")
	}
	invoiceDate, err = utils.ParseDate(input.InvoiceDate)
	if err != nil {
		return invoiceDate, dueDate, utils.NewValidationError("invalid invoice_date %q", input.InvoiceDate)
	}
	dueDate, err = utils.ParseDate(input.DueDate)
	if err != nil {
		return invoiceDate, dueDate, utils.NewValidationError("invalid due_date %q", input.DueDate)
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&Customer{}).Where("id = ?", input.CustomerId).Count(&count).Error; err != nil {
		return invoiceDate, dueDate, utils.NewInfrastructureError(err)
	}
	if count <= 0 {
		return invoiceDate, dueDate, utils.NewNotFoundError("customer")
	}
	return invoiceDate, dueDate, nil
}

func mapNewLineItems(input []NewLineItem) []LineItem {
	items := make([]LineItem, 0, len(input))
	for i, in := range input {
		item := LineItem{
			LineOrder:   in.LineOrder,
			ProductCode: in.ProductCode,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			DiscountPct: in.DiscountPct,
			VatRate:     in.VatRate,
		}
		if item.LineOrder == 0 {
			item.LineOrder = i
		}
		CalculateLineItem(&item)
		items = append(items, item)
	}
	return items
}

// CreateInvoiceTx builds an invoice inside the caller's transaction:
// number reservation, line math and totals all commit (or roll back)
// together with the insert.
func CreateInvoiceTx(ctx context.Context, tx *gorm.DB, cache *config.RedisStore, input *NewInvoice) (*Invoice, error) {
	input.normalize()
	invoiceDate, dueDate, err := input.validate(ctx, tx)
	if err != nil {
		return nil, err
	}

	items := mapNewLineItems(input.Items)
	totals := RecomputeLedger(items, nil)

	invoiceNumber, seqNo, err := NextInvoiceNumber(ctx, tx, cache, input.StoreCode, input.InvoiceType)
	if err != nil {
		return nil, utils.NewInfrastructureError(err)
	}

	invoice := Invoice{
		StoreCode:        input.StoreCode,
		InvoiceType:      input.InvoiceType,
		InvoiceNumber:    invoiceNumber,
		SequenceNo:       seqNo,
		Status:           input.Status,
		CustomerId:       input.CustomerId,
		InvoiceDate:      invoiceDate,
		DueDate:          dueDate,
		Notes:            input.Notes,
		Terms:            input.Terms,
		Currency:         input.Currency,
		Items:            items,
		Subtotal:         totals.Subtotal,
		VatTotal:         totals.VatTotal,
		Total:            totals.Total,
		AmountPaid:       totals.AmountPaid,
		Balance:          totals.Balance,
		VatBreakdownJSON: encodeVatBreakdown(totals.VatBreakdown),
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "invoice")
	}
	return &invoice, nil
}

func CreateInvoice(ctx context.Context, db *gorm.DB, cache *config.RedisStore, input *NewInvoice) (*Invoice, error) {
	var invoice *Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		invoice, txErr = CreateInvoiceTx(ctx, tx, cache, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// recomputeAndStoreLedger reloads the authoritative item/payment sets and
// writes the derived totals and status back, all inside tx. Every mutation
// that can move the ledger funnels through here.
func recomputeAndStoreLedger(ctx context.Context, tx *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	if err := tx.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&invoice, invoiceId).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "invoice")
	}

	totals := RecomputeLedger(invoice.Items, invoice.Payments)
	status := DeriveStatus(invoice.Status, totals)

	if err := tx.WithContext(ctx).Model(&Invoice{}).
		Where("id = ?", invoiceId).
		Updates(map[string]interface{}{
			"subtotal":           totals.Subtotal,
			"vat_total":          totals.VatTotal,
			"total":              totals.Total,
			"amount_paid":        totals.AmountPaid,
			"balance":            totals.Balance,
			"vat_breakdown_json": encodeVatBreakdown(totals.VatBreakdown),
			"status":             status,
			"updated_at":         time.Now(),
		}).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}

	invoice.Subtotal = totals.Subtotal
	invoice.VatTotal = totals.VatTotal
	invoice.Total = totals.Total
	invoice.AmountPaid = totals.AmountPaid
	invoice.Balance = totals.Balance
	invoice.VatBreakdownJSON = encodeVatBreakdown(totals.VatBreakdown)
	invoice.Status = status
	return &invoice, nil
}

// UpdateInvoiceTx applies a partial overwrite. When Items is non-nil the
// whole line set is replaced and the ledger recomputed from storage.
func UpdateInvoiceTx(ctx context.Context, tx *gorm.DB, invoiceId int, input *UpdateInvoiceInput) (*Invoice, error) {
	var invoice Invoice
	if err := tx.WithContext(ctx).First(&invoice, invoiceId).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "invoice")
	}

	updates := map[string]interface{}{}
	if input.CustomerId != nil {
		var count int64
		if err := tx.WithContext(ctx).Model(&Customer{}).Where("id = ?", *input.CustomerId).Count(&count).Error; err != nil {
			return nil, utils.NewInfrastructureError(err)
		}
		if count <= 0 {
			return nil, utils.NewNotFoundError("customer")
		}
		updates["customer_id"] = *input.CustomerId
	}
	if input.InvoiceDate != nil {
		d, err := utils.ParseDate(*input.InvoiceDate)
		if err != nil {
			return nil, utils.NewValidationError("invalid invoice_date %q", *input.InvoiceDate)
		}
		updates["invoice_date"] = d
	}
	if input.DueDate != nil {
		d, err := utils.ParseDate(*input.DueDate)
		if err != nil {
			return nil, utils.NewValidationError("invalid due_date %q", *input.DueDate)
		}
		updates["due_date"] = d
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, utils.NewValidationError("invalid status %q", *input.Status)
		}
		if invoice.Status == InvoiceStatusCancelled {
			return nil, utils.NewValidationError("a cancelled invoice cannot change status")
		}
		if *input.Status == InvoiceStatusCancelled && invoice.Status == InvoiceStatusPaid {
			return nil, utils.NewValidationError("a paid invoice cannot be cancelled")
		}
		updates["status"] = *input.Status
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.Terms != nil {
		updates["terms"] = *input.Terms
	}

	if len(updates) > 0 {
		if err := tx.WithContext(ctx).Model(&Invoice{}).
			Where("id = ?", invoiceId).
			Updates(updates).Error; err != nil {
			return nil, utils.NewInfrastructureError(err)
		}
	}

	if input.Items != nil {
		if len(input.Items) == 0 {
			return nil, utils.NewValidationError("item replacement requires at least one line item")
		}
		if err := replaceInvoiceItems(ctx, tx, invoiceId, input.Items); err != nil {
			return nil, err
		}
	}

	return recomputeAndStoreLedger(ctx, tx, invoiceId)
}

func UpdateInvoice(ctx context.Context, db *gorm.DB, invoiceId int, input *UpdateInvoiceInput) (*Invoice, error) {
	var invoice *Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		invoice, txErr = UpdateInvoiceTx(ctx, tx, invoiceId, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// replaceInvoiceItems swaps the whole stored line set. Items are immutable
// once invoiced except via this path.
func replaceInvoiceItems(ctx context.Context, tx *gorm.DB, invoiceId int, input []NewLineItem) error {
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoiceId).Delete(&LineItem{}).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	items := mapNewLineItems(input)
	for i := range items {
		items[i].InvoiceId = invoiceId
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	return nil
}

// CancelInvoice is a soft delete: terminal, reachable from any non-paid state.
func CancelInvoice(ctx context.Context, db *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&invoice, invoiceId).Error; err != nil {
			return utils.ClassifyDBError(err, "invoice")
		}
		if invoice.Status == InvoiceStatusPaid {
			return utils.NewValidationError("a paid invoice cannot be cancelled")
		}
		if invoice.Status == InvoiceStatusCancelled {
			return nil
		}
		if err := tx.WithContext(ctx).Model(&Invoice{}).
			Where("id = ?", invoiceId).
			Update("status", InvoiceStatusCancelled).Error; err != nil {
			return utils.NewInfrastructureError(err)
		}
		invoice.Status = InvoiceStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkInvoiceSent records the first successful send of a draft.
func MarkInvoiceSent(ctx context.Context, db *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&invoice, invoiceId).Error; err != nil {
			return utils.ClassifyDBError(err, "invoice")
		}
		if invoice.Status != InvoiceStatusDraft {
			return nil
		}
		if err := tx.WithContext(ctx).Model(&Invoice{}).
			Where("id = ?", invoiceId).
			Update("status", InvoiceStatusSent).Error; err != nil {
			return utils.NewInfrastructureError(err)
		}
		invoice.Status = InvoiceStatusSent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ConvertQuote turns a quote into an invoice. A fresh number is allocated
// from the invoice counter; items and payment history are retained.
func ConvertQuote(ctx context.Context, db *gorm.DB, cache *config.RedisStore, quoteId int) (*Invoice, error) {
	var invoice Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&invoice, quoteId).Error; err != nil {
			return utils.ClassifyDBError(err, "quote")
		}
		if invoice.InvoiceType != InvoiceTypeQuote {
			return utils.NewValidationError("only quotes can be converted")
		}
		if invoice.Status == InvoiceStatusCancelled {
			return utils.NewValidationError("a cancelled quote cannot be converted")
		}

		newNumber, seqNo, err := NextInvoiceNumber(ctx, tx, cache, invoice.StoreCode, InvoiceTypeInvoice)
		if err != nil {
			return utils.NewInfrastructureError(err)
		}
		if err := tx.WithContext(ctx).Model(&Invoice{}).
			Where("id = ?", quoteId).
			Updates(map[string]interface{}{
				"invoice_type":   InvoiceTypeInvoice,
				"invoice_number": newNumber,
				"sequence_no":    seqNo,
				"status":         InvoiceStatusSent,
			}).Error; err != nil {
			return utils.ClassifyDBError(err, "invoice")
		}
		invoice.InvoiceType = InvoiceTypeInvoice
		invoice.InvoiceNumber = newNumber
		invoice.SequenceNo = seqNo
		invoice.Status = InvoiceStatusSent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func GetInvoice(ctx context.Context, db *gorm.DB, invoiceId int) (*Invoice, error) {
	var invoice Invoice
	if err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_order") }).
		Preload("Payments").
		First(&invoice, invoiceId).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "invoice")
	}
	return &invoice, nil
}

type InvoiceFilter struct {
	StoreCode  string
	Status     InvoiceStatus
	CustomerId int
	// IncludeCancelled keeps cancelled invoices in the list; off by default.
	IncludeCancelled bool
}

func GetInvoices(ctx context.Context, db *gorm.DB, filter InvoiceFilter) ([]*Invoice, error) {
	dbCtx := db.WithContext(ctx).Model(&Invoice{})
	if !filter.IncludeCancelled {
		dbCtx = dbCtx.Where("status != ?", InvoiceStatusCancelled)
	}
	if filter.StoreCode != "" {
		dbCtx = dbCtx.Where("store_code = ?", filter.StoreCode)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.CustomerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}

	var invoices []*Invoice
	if err := dbCtx.Order("invoice_date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return invoices, nil
}
