package devicesync

import (
	"time"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/shopspring/decimal"
)

// SyncRequest is one uploaded batch from a device's offline queue.
type SyncRequest struct {
	DeviceId string              `json:"device_id" binding:"required"`
	Queue    []models.QueuedItem `json:"queue" binding:"required"`
}

type SyncItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type SyncResponse struct {
	Success   bool            `json:"success"`
	Processed int             `json:"processed"`
	Errors    []SyncItemError `json:"errors"`
}

// changeFeedLimit caps each entity list in a pull response. Clients page by
// re-polling with the returned server_time.
const changeFeedLimit = 1000

type InvoiceChange struct {
	ID            int                  `json:"id"`
	StoreCode     string               `json:"store_code"`
	InvoiceType   models.InvoiceType   `json:"type"`
	InvoiceNumber string               `json:"invoice_number"`
	Status        models.InvoiceStatus `json:"status"`
	CustomerId    int                  `json:"customer_id"`
	InvoiceDate   time.Time            `json:"invoice_date"`
	DueDate       time.Time            `json:"due_date"`
	Total         decimal.Decimal      `json:"total"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	Balance       decimal.Decimal      `json:"balance"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type CustomerChange struct {
	ID        int       `json:"id"`
	AccountNo string    `json:"account_no"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentChange struct {
	ID          int                  `json:"id"`
	InvoiceId   int                  `json:"invoice_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Method      models.PaymentMethod `json:"method"`
	Reference   string               `json:"reference"`
	PaymentDate time.Time            `json:"payment_date"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ChangeFeedData groups the per-entity change lists under the response's
// data key.
type ChangeFeedData struct {
	Invoices  []InvoiceChange  `json:"invoices"`
	Customers []CustomerChange `json:"customers"`
	Payments  []PaymentChange  `json:"payments"`
}

type ChangeFeedResponse struct {
	Success    bool           `json:"success"`
	Since      string         `json:"since"`
	Data       ChangeFeedData `json:"data"`
	ServerTime time.Time      `json:"server_time"`
}
