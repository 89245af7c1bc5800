package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"apdash/pkg/models"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func paid(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(amount(s))
}

// rec builds an invoice; check may be nil and paidAmt empty for unpaid invoices.
func rec(vendor, dept string, invoice time.Time, amt string, check *time.Time, paidAmt string) models.InvoiceRecord {
	inv := invoice
	r := models.InvoiceRecord{
		VendorName:    vendor,
		Department:    dept,
		InvoiceID:     vendor + "-" + invoice.Format("0102"),
		InvoiceDate:   &inv,
		InvoiceAmount: amount(amt),
		CheckDate:     check,
	}
	if paidAmt != "" {
		r.PaidAmount = paid(paidAmt)
	}
	return r
}
