package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRecord is one row of the supplier ledger.
type InvoiceRecord struct {
	// Keys
	VendorName string // Supplier name; a trailing "*" marks an auto-debit vendor
	Department string // Cost center
	InvoiceID  string // Invoice number (not unique across vendors)

	// Invoice side
	InvoiceDate   *time.Time      // Issue date (nil if missing or malformed)
	InvoiceAmount decimal.Decimal // Face value, may be 0

	// Payment side
	CheckDate        *time.Time          // Date the payment was issued (nil if unpaid)
	PaidAmount       decimal.NullDecimal // Amount paid to date
	CheckTotalAmount decimal.NullDecimal // Total of the check/batch covering this invoice
	CheckNumber      string              // Check or transfer reference

	// Sales taxes carried on the invoice
	TPS decimal.NullDecimal
	TVQ decimal.NullDecimal

	Row int // 1-based row in the source sheet
}

// IsAutoDebit reports whether the vendor is paid by pre-authorized debit.
func (r *InvoiceRecord) IsAutoDebit() bool {
	return strings.HasSuffix(strings.TrimSpace(r.VendorName), "*")
}

// Paid returns the paid amount with a missing value read as zero.
func (r *InvoiceRecord) Paid() decimal.Decimal {
	if !r.PaidAmount.Valid {
		return decimal.Zero
	}
	return r.PaidAmount.Decimal
}

// Outstanding is invoice amount minus paid amount. Overpayments stay negative.
func (r *InvoiceRecord) Outstanding() decimal.Decimal {
	return r.InvoiceAmount.Sub(r.Paid())
}

// IsVoid reports a cancelled entry: nothing invoiced and nothing paid.
func (r *InvoiceRecord) IsVoid() bool {
	return r.InvoiceAmount.IsZero() && r.Paid().IsZero()
}

// IsSettled reports whether a payment date is known.
func (r *InvoiceRecord) IsSettled() bool {
	return r.CheckDate != nil
}

// PaymentLagDays returns the days between invoice and check date.
// ok is false unless both dates are present.
func (r *InvoiceRecord) PaymentLagDays() (days int, ok bool) {
	if r.InvoiceDate == nil || r.CheckDate == nil {
		return 0, false
	}
	return DaysBetween(*r.InvoiceDate, *r.CheckDate), true
}

// Clone returns a copy that shares no pointers with r.
func (r InvoiceRecord) Clone() InvoiceRecord {
	if r.InvoiceDate != nil {
		d := *r.InvoiceDate
		r.InvoiceDate = &d
	}
	if r.CheckDate != nil {
		d := *r.CheckDate
		r.CheckDate = &d
	}
	return r
}

// Date returns the calendar date y-m-d at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// DatePtr is a convenience for building records.
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int((DateOf(b).Unix() - DateOf(a).Unix()) / 86400)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}
