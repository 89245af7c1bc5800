package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apdash/pkg/models"
)

func open(vendor, dept, id string, invoice time.Time, amt string) models.InvoiceRecord {
	inv := invoice
	return models.InvoiceRecord{
		VendorName:    vendor,
		Department:    dept,
		InvoiceID:     id,
		InvoiceDate:   &inv,
		InvoiceAmount: amount(amt),
	}
}

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		now     time.Time
		wantEnd time.Time
	}{
		{models.Date(2024, time.June, 17), models.Date(2024, time.June, 23)},                       // Monday
		{time.Date(2024, time.June, 19, 18, 45, 0, 0, time.UTC), models.Date(2024, time.June, 23)}, // Wednesday evening
		{models.Date(2024, time.June, 23), models.Date(2024, time.June, 23)},                       // Sunday
		{models.Date(2024, time.December, 30), models.Date(2025, time.January, 5)},                 // across the year
	}

	for _, tt := range tests {
		w := WeekWindow(tt.now)
		assert.Equal(t, models.DateOf(tt.now), w.Start)
		assert.Equal(t, tt.wantEnd, w.End, "now=%s", tt.now)
	}
}

func TestForecast_DueWithinWindow(t *testing.T) {
	stats := []CycleStat{{Department: "Produce", VendorName: "BETA", InvoiceCount: 3, MedianLagDays: 10}}
	records := []models.InvoiceRecord{
		open("BETA", "Produce", "B-1", models.Date(2024, time.June, 1), "500"),
	}
	window := Window{Start: models.Date(2024, time.June, 17), End: models.Date(2024, time.June, 20)}

	result := ForecastWindow(records, stats, window)

	require.Len(t, result.Detail, 1)
	line := result.Detail[0]
	require.NotNil(t, line.ExpectedPaymentDate)
	assert.Equal(t, models.Date(2024, time.June, 11), *line.ExpectedPaymentDate)
	assert.True(t, line.DueInWindow)
	assert.True(t, result.TotalDue.Equal(amount("500")))
	require.Len(t, result.ByDepartment, 1)
	assert.Equal(t, "Produce", result.ByDepartment[0].Department)
	require.Len(t, result.ByVendor, 1)
	assert.Equal(t, "BETA", result.ByVendor[0].VendorName)
}

func TestForecast_ExpectedAfterWindowNotDue(t *testing.T) {
	stats := []CycleStat{{Department: "Produce", VendorName: "BETA", MedianLagDays: 30}}
	records := []models.InvoiceRecord{
		open("BETA", "Produce", "B-2", models.Date(2024, time.June, 1), "500"),
	}
	window := Window{Start: models.Date(2024, time.June, 17), End: models.Date(2024, time.June, 23)}

	result := ForecastWindow(records, stats, window)

	assert.Empty(t, result.Detail)
	assert.True(t, result.TotalDue.IsZero())
	require.Len(t, result.AllOutstanding, 1)
	assert.False(t, result.AllOutstanding[0].DueInWindow)
	assert.Equal(t, models.Date(2024, time.July, 1), *result.AllOutstanding[0].ExpectedPaymentDate)
}

func TestForecast_MedianRoundedToWholeDays(t *testing.T) {
	stats := []CycleStat{{Department: "Dairy", VendorName: "MILK", MedianLagDays: 6.5}}
	records := []models.InvoiceRecord{
		open("MILK", "Dairy", "M-1", models.Date(2024, time.June, 1), "10"),
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2024, time.June, 30)})

	require.Len(t, result.AllOutstanding, 1)
	assert.Equal(t, models.Date(2024, time.June, 8), *result.AllOutstanding[0].ExpectedPaymentDate)
}

func TestForecast_VendorWithoutHistory(t *testing.T) {
	stats := []CycleStat{{Department: "Produce", VendorName: "BETA", MedianLagDays: 1}}
	records := []models.InvoiceRecord{
		open("NEWCO", "Produce", "N-1", models.Date(2024, time.January, 1), "75"),
		open("BETA", "Produce", "B-1", models.Date(2024, time.January, 1), "25"),
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2024, time.June, 30)})

	require.Len(t, result.AllOutstanding, 2)
	require.Len(t, result.Detail, 1)
	assert.Equal(t, "BETA", result.Detail[0].VendorName)
	assert.True(t, result.TotalDue.Equal(amount("25")))
	assert.Equal(t, 1, result.Unprojected)

	var newco ForecastLine
	for _, l := range result.AllOutstanding {
		if l.VendorName == "NEWCO" {
			newco = l
		}
	}
	assert.Nil(t, newco.MedianLagDays)
	assert.Nil(t, newco.ExpectedPaymentDate)
	assert.False(t, newco.DueInWindow)
}

func TestForecast_MissingInvoiceDateNotProjected(t *testing.T) {
	stats := []CycleStat{{Department: "Produce", VendorName: "BETA", MedianLagDays: 1}}
	records := []models.InvoiceRecord{
		{VendorName: "BETA", Department: "Produce", InvoiceID: "X", InvoiceAmount: amount("9")},
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2030, time.January, 1)})

	require.Len(t, result.AllOutstanding, 1)
	assert.NotNil(t, result.AllOutstanding[0].MedianLagDays)
	assert.Nil(t, result.AllOutstanding[0].ExpectedPaymentDate)
	assert.Empty(t, result.Detail)
}

func TestForecast_CumulativeDetailOrderedByInvoiceDate(t *testing.T) {
	stats := []CycleStat{
		{Department: "Produce", VendorName: "BETA", MedianLagDays: 2},
		{Department: "Meat", VendorName: "ZETA", MedianLagDays: 2},
	}
	records := []models.InvoiceRecord{
		open("BETA", "Produce", "3", models.Date(2024, time.June, 5), "30"),
		open("ZETA", "Meat", "1", models.Date(2024, time.June, 1), "10.10"),
		open("BETA", "Produce", "2", models.Date(2024, time.June, 1), "20"),
		{VendorName: "BETA", Department: "Produce", InvoiceID: "4", InvoiceDate: models.DatePtr(2024, time.June, 3), InvoiceAmount: amount("50"), PaidAmount: paid("65")},
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2024, time.June, 30)})

	require.Len(t, result.Detail, 4)
	var ids []string
	var cumulative []string
	for _, l := range result.Detail {
		ids = append(ids, l.InvoiceID)
		cumulative = append(cumulative, l.CumulativeOutstanding.StringFixed(2))
	}
	// same invoice date: Meat sorts before Produce
	assert.Equal(t, []string{"1", "2", "4", "3"}, ids)
	assert.Equal(t, []string{"10.10", "30.10", "15.10", "45.10"}, cumulative)
	assert.True(t, result.TotalDue.Equal(amount("45.10")))
}

func TestForecast_TinyResidualsTreatedAsZero(t *testing.T) {
	stats := []CycleStat{{Department: "Produce", VendorName: "BETA", MedianLagDays: 0}}
	records := []models.InvoiceRecord{
		{VendorName: "BETA", Department: "Produce", InvoiceID: "1", InvoiceDate: models.DatePtr(2024, time.June, 1), InvoiceAmount: amount("100.0000001"), PaidAmount: paid("100")},
		open("BETA", "Produce", "2", models.Date(2024, time.June, 2), "5"),
		{VendorName: "BETA", Department: "Produce", InvoiceID: "3", InvoiceDate: models.DatePtr(2024, time.June, 3), InvoiceAmount: amount("-5")},
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2024, time.June, 30)})

	require.Len(t, result.Detail, 2)
	assert.Equal(t, "2", result.Detail[0].InvoiceID)
	last := result.Detail[1].CumulativeOutstanding
	assert.True(t, last.IsZero())
	assert.Equal(t, "0.00", last.StringFixed(2))
}

func TestForecast_TotalDueEqualsSumOfDueLines(t *testing.T) {
	base := models.Date(2024, time.May, 1)
	history := []models.InvoiceRecord{
		settled("BETA", "Produce", base, 10, "1"),
		settled("BETA", "Produce", base, 14, "1"),
		settled("KAPPA", "Grocery", base, 40, "1"),
		settled("LAMBDA", "Grocery", base, 3, "1"),
	}
	outstanding := []models.InvoiceRecord{
		open("BETA", "Produce", "o1", models.Date(2024, time.June, 1), "12.34"),
		open("BETA", "Produce", "o2", models.Date(2024, time.June, 14), "7.66"),
		open("KAPPA", "Grocery", "o3", models.Date(2024, time.June, 1), "100"),
		open("LAMBDA", "Grocery", "o4", models.Date(2024, time.June, 15), "0.01"),
		open("NOHIST", "Grocery", "o5", models.Date(2024, time.June, 1), "999"),
	}
	records := append(history, outstanding...)
	now := models.Date(2024, time.June, 19)

	effective := Impute(records, now)
	result := Forecast(effective, CycleStats(effective), now)

	want := decimal.Zero
	for _, l := range result.AllOutstanding {
		if l.ExpectedPaymentDate != nil && !l.ExpectedPaymentDate.After(result.Window.End) {
			want = want.Add(l.Outstanding)
		}
	}
	assert.True(t, result.TotalDue.Equal(want), "total %s want %s", result.TotalDue, want)
	// o1 (Jun 13) and o4 (Jun 18) are due by Sunday Jun 23; o2 lands on Jun 26, o3 on Jul 11
	assert.True(t, result.TotalDue.Equal(amount("12.35")))

	deptSum := decimal.Zero
	for _, d := range result.ByDepartment {
		deptSum = deptSum.Add(d.Amount)
	}
	assert.True(t, deptSum.Equal(result.TotalDue))
}

func TestForecast_VoidNeverAppears(t *testing.T) {
	stats := []CycleStat{{Department: "Meat", VendorName: "GAMMA", MedianLagDays: 1}}
	records := []models.InvoiceRecord{
		{VendorName: "GAMMA", Department: "Meat", InvoiceDate: models.DatePtr(2024, time.June, 1), InvoiceAmount: decimal.Zero, PaidAmount: paid("0")},
	}

	result := ForecastWindow(records, stats, Window{End: models.Date(2024, time.June, 30)})

	assert.Empty(t, result.AllOutstanding)
	assert.Empty(t, result.Detail)
	assert.Empty(t, result.ByVendor)
}
