package models

type InvoiceType string

const (
	InvoiceTypeInvoice    InvoiceType = "invoice"
	InvoiceTypeQuote      InvoiceType = "quote"
	InvoiceTypeCreditNote InvoiceType = "credit_note"
)

func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeInvoice, InvoiceTypeQuote, InvoiceTypeCreditNote:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartPaid  InvoiceStatus = "part_paid"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"

	// InvoiceStatusOverdue is a display-time overlay, never stored.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartPaid, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodEFT    PaymentMethod = "eft"
	PaymentMethodCheque PaymentMethod = "cheque"
	PaymentMethodOther  PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodEFT, PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}

type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
)

func (a SyncAction) Valid() bool {
	return a == SyncActionCreate || a == SyncActionUpdate
}

type SyncEntityType string

const (
	SyncEntityInvoice  SyncEntityType = "invoice"
	SyncEntityCustomer SyncEntityType = "customer"
	SyncEntityPayment  SyncEntityType = "payment"
)

func (t SyncEntityType) Valid() bool {
	switch t {
	case SyncEntityInvoice, SyncEntityCustomer, SyncEntityPayment:
		return true
	}
	return false
}

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
