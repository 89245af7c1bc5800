package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apdash/pkg/models"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func paid(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(amount(s))
}

func TestImpute_AutoDebitAfterGracePeriod(t *testing.T) {
	records := []models.InvoiceRecord{{
		VendorName:    "ACME*",
		Department:    "Grocery",
		InvoiceID:     "A-1",
		InvoiceDate:   models.DatePtr(2024, time.January, 1),
		InvoiceAmount: amount("250.40"),
	}}

	out := Impute(records, time.Date(2024, time.January, 20, 9, 30, 0, 0, time.UTC))

	require.Len(t, out, 1)
	require.True(t, out[0].IsSettled())
	assert.Equal(t, models.Date(2024, time.January, 11), *out[0].CheckDate)
	assert.True(t, out[0].PaidAmount.Valid)
	assert.True(t, out[0].PaidAmount.Decimal.Equal(amount("250.40")))
	assert.True(t, out[0].CheckTotalAmount.Decimal.Equal(amount("250.40")))
	assert.True(t, out[0].Outstanding().IsZero())

	// source untouched
	assert.False(t, records[0].IsSettled())
	assert.False(t, records[0].PaidAmount.Valid)
}

func TestImpute_AutoDebitBeforeGracePeriod(t *testing.T) {
	records := []models.InvoiceRecord{{
		VendorName:    "ACME*",
		Department:    "Grocery",
		InvoiceDate:   models.DatePtr(2024, time.January, 1),
		InvoiceAmount: amount("250.40"),
	}}

	out := Impute(records, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC))

	require.Len(t, out, 1)
	assert.False(t, out[0].IsSettled())
	assert.True(t, out[0].Outstanding().Equal(amount("250.40")))
}

func TestImpute_Boundaries(t *testing.T) {
	invoiceDate := models.DatePtr(2024, time.March, 1)

	tests := []struct {
		name       string
		record     models.InvoiceRecord
		now        time.Time
		wantSettle bool
	}{
		{
			name:       "exactly ten days is not yet elapsed",
			record:     models.InvoiceRecord{VendorName: "DAIRY*", Department: "Dairy", InvoiceDate: invoiceDate, InvoiceAmount: amount("10")},
			now:        models.Date(2024, time.March, 11),
			wantSettle: false,
		},
		{
			name:       "eleven days elapsed",
			record:     models.InvoiceRecord{VendorName: "DAIRY*", Department: "Dairy", InvoiceDate: invoiceDate, InvoiceAmount: amount("10")},
			now:        models.Date(2024, time.March, 12),
			wantSettle: true,
		},
		{
			name:       "vendor without star is never imputed",
			record:     models.InvoiceRecord{VendorName: "DAIRY", Department: "Dairy", InvoiceDate: invoiceDate, InvoiceAmount: amount("10")},
			now:        models.Date(2024, time.June, 1),
			wantSettle: false,
		},
		{
			name:       "missing invoice date is never imputed",
			record:     models.InvoiceRecord{VendorName: "DAIRY*", Department: "Dairy", InvoiceAmount: amount("10")},
			now:        models.Date(2024, time.June, 1),
			wantSettle: false,
		},
		{
			name:       "star with trailing blank still counts as auto-debit",
			record:     models.InvoiceRecord{VendorName: "DAIRY* ", Department: "Dairy", InvoiceDate: invoiceDate, InvoiceAmount: amount("10")},
			now:        models.Date(2024, time.June, 1),
			wantSettle: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Impute([]models.InvoiceRecord{tt.record}, tt.now)
			require.Len(t, out, 1)
			assert.Equal(t, tt.wantSettle, out[0].CheckDate != nil)
			assert.Equal(t, tt.wantSettle, IsAutoDebitElapsed(&tt.record, tt.now))
		})
	}
}

func TestImpute_ExistingCheckDateIsKept(t *testing.T) {
	check := models.DatePtr(2024, time.January, 4)
	records := []models.InvoiceRecord{{
		VendorName:    "ACME*",
		Department:    "Grocery",
		InvoiceDate:   models.DatePtr(2024, time.January, 1),
		InvoiceAmount: amount("100"),
		CheckDate:     check,
		PaidAmount:    paid("60"),
	}}

	out := Impute(records, models.Date(2024, time.February, 1))

	require.Len(t, out, 1)
	assert.Equal(t, *check, *out[0].CheckDate)
	assert.True(t, out[0].Outstanding().Equal(amount("40")))
}

func TestImpute_VoidEntriesDropped(t *testing.T) {
	records := []models.InvoiceRecord{
		{VendorName: "GAMMA*", Department: "Meat", InvoiceDate: models.DatePtr(2024, time.January, 1), InvoiceAmount: decimal.Zero, PaidAmount: paid("0")},
		{VendorName: "GAMMA*", Department: "Meat", InvoiceDate: models.DatePtr(2024, time.January, 2), InvoiceAmount: decimal.Zero},
		{VendorName: "BETA", Department: "Meat", InvoiceDate: models.DatePtr(2024, time.January, 2), InvoiceAmount: amount("5")},
	}

	out := Impute(records, models.Date(2024, time.March, 1))

	require.Len(t, out, 1)
	assert.Equal(t, "BETA", out[0].VendorName)
}

func TestImpute_Idempotent(t *testing.T) {
	now := models.Date(2024, time.April, 15)
	records := []models.InvoiceRecord{
		{VendorName: "ACME*", Department: "Grocery", InvoiceID: "1", InvoiceDate: models.DatePtr(2024, time.March, 1), InvoiceAmount: amount("12.34")},
		{VendorName: "ACME*", Department: "Grocery", InvoiceID: "2", InvoiceDate: models.DatePtr(2024, time.April, 10), InvoiceAmount: amount("7")},
		{VendorName: "BETA", Department: "Produce", InvoiceID: "3", InvoiceDate: models.DatePtr(2024, time.March, 3), InvoiceAmount: amount("99.99"), PaidAmount: paid("100")},
		{VendorName: "BETA", Department: "Produce", InvoiceID: "4", InvoiceAmount: amount("0"), PaidAmount: paid("0")},
	}

	once := Impute(records, now)
	twice := Impute(once, now)

	assert.Equal(t, once, twice)
}

func TestImpute_OutstandingKeepsSign(t *testing.T) {
	records := []models.InvoiceRecord{
		{VendorName: "BETA", Department: "Produce", InvoiceAmount: amount("100"), PaidAmount: paid("120.50")},
		{VendorName: "BETA", Department: "Produce", InvoiceAmount: amount("80")},
		{VendorName: "BETA", Department: "Produce", InvoiceAmount: decimal.Zero, PaidAmount: paid("15")},
	}

	out := Impute(records, models.Date(2024, time.January, 1))

	require.Len(t, out, 3)
	assert.True(t, out[0].Outstanding().Equal(amount("-20.50")))
	assert.True(t, out[1].Outstanding().Equal(amount("80")))
	assert.True(t, out[2].Outstanding().Equal(amount("-15")))
}
