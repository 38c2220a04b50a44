package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
)

// seed-store registers a store with its document number prefixes. Stores are
// operator-managed; there is no API surface for them.
func main() {
	code := flag.String("code", "", "Required: store code (max 10 chars)")
	name := flag.String("name", "", "Required: store display name")
	invoicePrefix := flag.String("invoice-prefix", "", "Invoice number prefix (default: derived from code)")
	quotePrefix := flag.String("quote-prefix", "", "Quote number prefix (default: invoice prefix + Q)")
	creditPrefix := flag.String("credit-prefix", "", "Credit note prefix (default: invoice prefix + CN)")
	currency := flag.String("currency", "ZAR", "Store currency")
	flag.Parse()

	if strings.TrimSpace(*code) == "" || strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "--code and --name are required")
		os.Exit(1)
	}
	if len(*code) > 10 {
		fmt.Fprintln(os.Stderr, "--code must be at most 10 characters")
		os.Exit(1)
	}

	prefix := strings.TrimSpace(*invoicePrefix)
	if prefix == "" {
		prefix = utils.DefaultPrefix(*code)
	}
	qp := strings.TrimSpace(*quotePrefix)
	if qp == "" {
		qp = prefix + "Q"
	}
	cp := strings.TrimSpace(*creditPrefix)
	if cp == "" {
		cp = prefix + "CN"
	}

	db := config.ConnectDatabaseWithRetry()

	store := models.Store{
		Code:             strings.ToUpper(strings.TrimSpace(*code)),
		Name:             strings.TrimSpace(*name),
		InvoicePrefix:    prefix,
		QuotePrefix:      qp,
		CreditNotePrefix: cp,
		Currency:         *currency,
	}
	if err := db.Create(&store).Error; err != nil {
		fmt.Fprintln(os.Stderr, "seed store failed:", err)
		os.Exit(1)
	}
	fmt.Printf("store %s created (invoice prefix %s)\n", store.Code, store.InvoicePrefix)
}
