package devicesync_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestInvoiceNumbersUniqueUnderConcurrentAllocation(t *testing.T) {
	db, cache := setupIntegration(t)
	ctx := context.Background()

	if err := db.Create(&models.Store{Code: "SOW", Name: "Soweto Branch"}).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}

	// First allocation creates the counter row; the concurrent burst then
	// contends on the row lock.
	if err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := models.NextInvoiceNumber(ctx, tx, cache, "SOW", models.InvoiceTypeInvoice)
		return err
	}); err != nil {
		t.Fatalf("first allocation: %v", err)
	}

	const workers = 20
	numbers := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				number, _, err := models.NextInvoiceNumber(ctx, tx, cache, "SOW", models.InvoiceTypeInvoice)
				if err != nil {
					return err
				}
				numbers <- number
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("allocation failed: %v", err)
	}
	seen := map[string]bool{}
	for number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate invoice number %s", number)
		}
		seen[number] = true
	}
	// Committed allocations are gapless: exactly 1002..1021 after the seed.
	for i := 0; i < workers; i++ {
		want := fmt.Sprintf("SOW-%04d", 1002+i)
		if !seen[want] {
			t.Fatalf("missing invoice number %s in %v", want, seen)
		}
	}
}

func TestInvoiceNumbersIsolatedPerStoreAndType(t *testing.T) {
	db, cache := setupIntegration(t)
	ctx := context.Background()

	allocate := func(storeCode string, invoiceType models.InvoiceType) (string, int64) {
		t.Helper()
		var number string
		var seqNo int64
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, seqNo, err = models.NextInvoiceNumber(ctx, tx, cache, storeCode, invoiceType)
			return err
		})
		if err != nil {
			t.Fatalf("allocate %s/%s: %v", storeCode, invoiceType, err)
		}
		return number, seqNo
	}

	// Burn two numbers on one counter.
	allocate("SOW", models.InvoiceTypeInvoice)
	allocate("SOW", models.InvoiceTypeInvoice)

	// Every other (store, type) pair still starts fresh.
	if _, seqNo := allocate("SOW", models.InvoiceTypeQuote); seqNo != 1001 {
		t.Fatalf("quote counter not isolated from invoice counter, got %d", seqNo)
	}
	if _, seqNo := allocate("LNS", models.InvoiceTypeInvoice); seqNo != 1001 {
		t.Fatalf("second store's counter not isolated, got %d", seqNo)
	}
	if _, seqNo := allocate("SOW", models.InvoiceTypeInvoice); seqNo != 1003 {
		t.Fatalf("expected first counter at 1003, got %d", seqNo)
	}
}

func TestPaidInvoiceCannotBeCancelled(t *testing.T) {
	db, cache := setupIntegration(t)
	ctx := context.Background()

	if err := db.Create(&models.Store{Code: "SOW", Name: "Soweto Branch"}).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, db, &models.NewCustomer{Name: "Thabo Traders"})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	invoice, err := models.CreateInvoice(ctx, db, cache, &models.NewInvoice{
		StoreCode:   "SOW",
		CustomerId:  customer.ID,
		Status:      models.InvoiceStatusSent,
		InvoiceDate: "2026-02-01",
		DueDate:     "2026-03-01",
		Items: []models.NewLineItem{
			{Description: "Cement", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	_, paid, err := models.CreatePayment(ctx, db, &models.NewPayment{
		InvoiceId: invoice.ID,
		Amount:    invoice.Total,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected paid after full payment, got %s", paid.Status)
	}

	// Neither the update path nor the cancel endpoint may cancel it.
	cancelled := models.InvoiceStatusCancelled
	if _, err := models.UpdateInvoice(ctx, db, invoice.ID, &models.UpdateInvoiceInput{Status: &cancelled}); !utils.IsValidationErr(err) {
		t.Fatalf("expected validation error cancelling a paid invoice via update, got %v", err)
	}
	if _, err := models.CancelInvoice(ctx, db, invoice.ID); !utils.IsValidationErr(err) {
		t.Fatalf("expected validation error from CancelInvoice, got %v", err)
	}

	reloaded, err := models.GetInvoice(ctx, db, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if reloaded.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice must stay paid, got %s", reloaded.Status)
	}
}
