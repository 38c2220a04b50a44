package models

import (
	"encoding/json"
	"time"

	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/shopspring/decimal"
)

// LedgerTotals is the authoritative financial state derived from an
// invoice's stored line items and payments.
type LedgerTotals struct {
	Subtotal     decimal.Decimal
	VatTotal     decimal.Decimal
	Total        decimal.Decimal
	AmountPaid   decimal.Decimal
	Balance      decimal.Decimal
	VatBreakdown map[string]decimal.Decimal
}

var decimalOneHundred = decimal.NewFromInt(100)

// CalculateLineItem fills the derived fields of a line:
// line_net = round2(qty * unit_price * (1 - discount_pct/100)),
// vat_amount = round2(line_net * vat_rate/100), line_total = net + vat.
// Rounding is half away from zero per line; invoice totals are sums of the
// already rounded lines, so recomputation never drifts.
func CalculateLineItem(item *LineItem) {
	discountFactor := decimal.NewFromInt(1).Sub(item.DiscountPct.Div(decimalOneHundred))
	item.LineNet = utils.Round2(item.Quantity.Mul(item.UnitPrice).Mul(discountFactor))
	item.VatAmount = utils.Round2(item.LineNet.Mul(item.VatRate).Div(decimalOneHundred))
	item.LineTotal = item.LineNet.Add(item.VatAmount)
}

// RecomputeLedger derives totals from the full item and payment sets.
// It is pure and idempotent: the same inputs always produce the same totals.
func RecomputeLedger(items []LineItem, payments []Payment) LedgerTotals {
	totals := LedgerTotals{
		Subtotal:     decimal.Zero,
		VatTotal:     decimal.Zero,
		AmountPaid:   decimal.Zero,
		VatBreakdown: make(map[string]decimal.Decimal),
	}

	for _, item := range items {
		totals.Subtotal = totals.Subtotal.Add(item.LineNet)
		totals.VatTotal = totals.VatTotal.Add(item.VatAmount)
		if item.VatRate.GreaterThan(decimal.Zero) {
			rateKey := item.VatRate.String()
			totals.VatBreakdown[rateKey] = totals.VatBreakdown[rateKey].Add(item.VatAmount)
		}
	}
	totals.Total = totals.Subtotal.Add(totals.VatTotal)

	for _, payment := range payments {
		totals.AmountPaid = totals.AmountPaid.Add(payment.Amount)
	}
	// Not clamped: an overpaid invoice carries a negative balance.
	totals.Balance = totals.Total.Sub(totals.AmountPaid)

	return totals
}

// DeriveStatus maps recomputed totals onto the stored status.
// cancelled is terminal; draft/sent survive until money moves the balance.
func DeriveStatus(current InvoiceStatus, totals LedgerTotals) InvoiceStatus {
	if current == InvoiceStatusCancelled {
		return current
	}
	switch {
	case totals.Balance.LessThanOrEqual(decimal.Zero):
		return InvoiceStatusPaid
	case totals.AmountPaid.GreaterThan(decimal.Zero):
		return InvoiceStatusPartPaid
	default:
		if current == InvoiceStatusPaid || current == InvoiceStatusPartPaid {
			// All payments were deleted; fall back to sent.
			return InvoiceStatusSent
		}
		return current
	}
}

func encodeVatBreakdown(breakdown map[string]decimal.Decimal) []byte {
	if len(breakdown) == 0 {
		return []byte("{}")
	}
	b, _ := json.Marshal(breakdown)
	return b
}

// IsOverdue reports the display-time overdue overlay: past due with money
// outstanding. It never applies to cancelled invoices, so a manual
// cancellation is not overwritten at render time.
func (inv Invoice) IsOverdue(asOf time.Time) bool {
	if inv.Status == InvoiceStatusCancelled || inv.Status == InvoiceStatusPaid {
		return false
	}
	return inv.DueDate.Before(asOf) && inv.Balance.GreaterThan(decimal.Zero)
}

// DisplayStatus is the status shown to users as of a reference time.
func (inv Invoice) DisplayStatus(asOf time.Time) InvoiceStatus {
	if inv.IsOverdue(asOf) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}
