package payments_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

// Example shows the reports built on the effective view of a small ledger.
func Example() {
	d := func(day int) *time.Time { return models.DatePtr(2024, time.June, day) }
	amt := decimal.RequireFromString

	ledger := []models.InvoiceRecord{
		{VendorName: "BETA", Department: "Produce", InvoiceID: "1", InvoiceDate: d(1), CheckDate: d(6), InvoiceAmount: amt("100"), PaidAmount: decimal.NewNullDecimal(amt("100"))},
		{VendorName: "BETA", Department: "Produce", InvoiceID: "2", InvoiceDate: d(2), CheckDate: d(12), InvoiceAmount: amt("100"), PaidAmount: decimal.NewNullDecimal(amt("100"))},
		{VendorName: "BETA", Department: "Produce", InvoiceID: "3", InvoiceDate: d(3), CheckDate: d(18), InvoiceAmount: amt("100"), PaidAmount: decimal.NewNullDecimal(amt("100"))},
		{VendorName: "BETA", Department: "Produce", InvoiceID: "4", InvoiceDate: d(10), InvoiceAmount: amt("250.50")},
		{VendorName: "ACME*", Department: "Grocery", InvoiceID: "5", InvoiceDate: d(1), InvoiceAmount: amt("80")},
	}
	now := time.Date(2024, time.June, 19, 10, 0, 0, 0, time.UTC)

	effective := payments.Impute(ledger, now)
	cycles := payments.CycleStats(effective)
	forecast := payments.Forecast(effective, cycles, now)

	for _, c := range cycles {
		fmt.Printf("%s/%s: n=%d median=%.0f\n", c.Department, c.VendorName, c.InvoiceCount, c.MedianLagDays)
	}
	fmt.Printf("due by %s: %s\n", forecast.Window.End.Format("2006-01-02"), forecast.TotalDue.StringFixed(2))
	// Output:
	// Grocery/ACME*: n=1 median=10
	// Produce/BETA: n=3 median=10
	// due by 2024-06-23: 250.50
}
