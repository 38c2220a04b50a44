package models

import (
	"context"
	"time"

	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method      PaymentMethod   `gorm:"size:20;default:cash" json:"method"`
	Reference   string          `gorm:"size:100" json:"reference"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime;index" json:"updated_at"`
}

type NewPayment struct {
	InvoiceId   int             `json:"invoice_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      PaymentMethod   `json:"method"`
	Reference   string          `json:"reference"`
	PaymentDate string          `json:"payment_date"`
	Notes       string          `json:"notes"`
}

// CreatePaymentTx records a payment and folds it into the invoice ledger
// in the same transaction. Overpayment is allowed; the balance goes negative.
func CreatePaymentTx(ctx context.Context, tx *gorm.DB, input *NewPayment) (*Payment, *Invoice, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, utils.NewValidationError("payment amount must be positive")
	}
	if input.Method == "" {
		input.Method = PaymentMethodCash
	}
	if !input.Method.Valid() {
		return nil, nil, utils.NewValidationError("invalid payment method %q", input.Method)
	}

	paymentDate := time.Now()
	if input.PaymentDate != "" {
		parsed, err := utils.ParseDate(input.PaymentDate)
		if err != nil {
			return nil, nil, utils.NewValidationError("invalid payment_date %q", input.PaymentDate)
		}
		paymentDate = parsed
	}

	var invoice Invoice
	if err := tx.WithContext(ctx).First(&invoice, input.InvoiceId).Error; err != nil {
		return nil, nil, utils.ClassifyDBError(err, "invoice")
	}
	if invoice.Status == InvoiceStatusCancelled {
		return nil, nil, utils.NewValidationError("a cancelled invoice cannot take payments")
	}
	if invoice.InvoiceType == InvoiceTypeQuote {
		return nil, nil, utils.NewValidationError("a quote cannot take payments")
	}

	payment := Payment{
		InvoiceId:   input.InvoiceId,
		Amount:      utils.Round2(input.Amount),
		Method:      input.Method,
		Reference:   input.Reference,
		PaymentDate: paymentDate,
		Notes:       input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, nil, utils.ClassifyDBError(err, "payment")
	}

	updated, err := recomputeAndStoreLedger(ctx, tx, input.InvoiceId)
	if err != nil {
		return nil, nil, err
	}
	return &payment, updated, nil
}

func CreatePayment(ctx context.Context, db *gorm.DB, input *NewPayment) (*Payment, *Invoice, error) {
	var (
		payment *Payment
		invoice *Invoice
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		payment, invoice, txErr = CreatePaymentTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, invoice, nil
}

// DeletePayment removes a payment and rolls the invoice ledger back. When
// the last payment goes, a previously paid invoice returns to sent.
func DeletePayment(ctx context.Context, db *gorm.DB, paymentId int) (*Invoice, error) {
	var invoice *Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var payment Payment
		if err := tx.WithContext(ctx).First(&payment, paymentId).Error; err != nil {
			return utils.ClassifyDBError(err, "payment")
		}
		if err := tx.WithContext(ctx).Delete(&Payment{}, paymentId).Error; err != nil {
			return utils.NewInfrastructureError(err)
		}
		var txErr error
		invoice, txErr = recomputeAndStoreLedger(ctx, tx, payment.InvoiceId)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetPayments(ctx context.Context, db *gorm.DB, invoiceId int) ([]*Payment, error) {
	var payments []*Payment
	if err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("payment_date, id").
		Find(&payments).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return payments, nil
}
