package payments

import (
	"time"

	"apdash/pkg/models"
)

// AutoDebitGraceDays is how long after invoicing an auto-debit vendor is
// considered paid.
const AutoDebitGraceDays = 10

// ExcludeVoid returns the records that are not void entries.
func ExcludeVoid(records []models.InvoiceRecord) []models.InvoiceRecord {
	out := make([]models.InvoiceRecord, 0, len(records))
	for _, r := range records {
		if r.IsVoid() {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// Impute returns the effective paid view of records as of now.
//
// Void entries are dropped first. An auto-debit vendor's invoice without a
// check date is settled at invoice date + AutoDebitGraceDays once that date is
// strictly before today: check date, paid amount and check total are filled
// from the invoice. All other records are copied unchanged. Applying Impute
// to its own output yields the same records.
func Impute(records []models.InvoiceRecord, now time.Time) []models.InvoiceRecord {
	today := models.DateOf(now)

	out := ExcludeVoid(records)
	for i := range out {
		r := &out[i]
		if !autoDebitElapsed(r, today) {
			continue
		}
		settled := models.AddDays(*r.InvoiceDate, AutoDebitGraceDays)
		r.CheckDate = &settled
		r.PaidAmount.Decimal = r.InvoiceAmount
		r.PaidAmount.Valid = true
		r.CheckTotalAmount.Decimal = r.InvoiceAmount
		r.CheckTotalAmount.Valid = true
	}
	return out
}

// IsAutoDebitElapsed reports whether r would be settled by Impute as of now.
func IsAutoDebitElapsed(r *models.InvoiceRecord, now time.Time) bool {
	return autoDebitElapsed(r, models.DateOf(now))
}

func autoDebitElapsed(r *models.InvoiceRecord, today time.Time) bool {
	if !r.IsAutoDebit() || r.IsSettled() || r.InvoiceDate == nil {
		return false
	}
	return models.AddDays(*r.InvoiceDate, AutoDebitGraceDays).Before(today)
}
