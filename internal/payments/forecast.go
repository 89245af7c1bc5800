package payments

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"apdash/pkg/models"
)

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeekWindow returns [today, Sunday of the current ISO week].
func WeekWindow(now time.Time) Window {
	today := models.DateOf(now)
	toSunday := (7 - int(today.Weekday())) % 7
	return Window{Start: today, End: today.AddDate(0, 0, toSunday)}
}

// ForecastLine is one outstanding invoice with its projected payment date.
type ForecastLine struct {
	Department            string          `json:"department"`
	VendorName            string          `json:"vendor_name"`
	InvoiceID             string          `json:"invoice_id"`
	InvoiceDate           *time.Time      `json:"invoice_date,omitempty"`
	InvoiceAmount         decimal.Decimal `json:"invoice_amount"`
	PaidAmount            decimal.Decimal `json:"paid_amount"`
	Outstanding           decimal.Decimal `json:"outstanding"`
	MedianLagDays         *float64        `json:"payment_lag_days_median,omitempty"`
	ExpectedPaymentDate   *time.Time      `json:"expected_payment_date,omitempty"`
	DueInWindow           bool            `json:"due_in_window"`
	CumulativeOutstanding decimal.Decimal `json:"cumulative_outstanding"`

	outstanding decimal.Decimal
}

// DepartmentAmount is an amount summed per department.
type DepartmentAmount struct {
	Department string          `json:"department"`
	Amount     decimal.Decimal `json:"amount"`
}

// VendorAmount is an amount summed per (department, vendor).
type VendorAmount struct {
	Department string          `json:"department"`
	VendorName string          `json:"vendor_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// ForecastResult holds the projection of outstanding invoices onto a window.
type ForecastResult struct {
	Window         Window             `json:"window"`
	TotalDue       decimal.Decimal    `json:"total_due"`
	ByDepartment   []DepartmentAmount `json:"by_department"`
	ByVendor       []VendorAmount     `json:"by_vendor"`
	Detail         []ForecastLine     `json:"detail"`
	AllOutstanding []ForecastLine     `json:"all_outstanding"`
	Unprojected    int                `json:"unprojected"`
}

// Forecast projects which outstanding invoices fall due by the end of the
// current week, using the vendor's median payment lag as predictor.
//
// records should be the effective view returned by Impute. Lines whose vendor
// has no payment history, or that lack an invoice date, appear in
// AllOutstanding without an expected date and never count towards the due
// totals. Detail lists the due lines ordered by invoice date, department,
// vendor and invoice id, with a running cumulative outstanding amount.
func Forecast(records []models.InvoiceRecord, stats []CycleStat, now time.Time) *ForecastResult {
	return ForecastWindow(records, stats, WeekWindow(now))
}

// ForecastWindow is Forecast with an explicit window.
func ForecastWindow(records []models.InvoiceRecord, stats []CycleStat, window Window) *ForecastResult {
	medians := MedianIndex(stats)
	result := &ForecastResult{Window: window}

	var due []ForecastLine
	for i := range records {
		r := &records[i]
		if r.IsVoid() {
			continue
		}
		outstanding := Snap(r.Outstanding())
		if outstanding.IsZero() {
			continue
		}

		line := ForecastLine{
			Department:    r.Department,
			VendorName:    r.VendorName,
			InvoiceID:     r.InvoiceID,
			InvoiceDate:   r.Clone().InvoiceDate,
			InvoiceAmount: Round2(r.InvoiceAmount),
			PaidAmount:    Round2(r.Paid()),
			Outstanding:   Round2(outstanding),
			outstanding:   outstanding,
		}

		median, ok := medians[VendorKey{Department: r.Department, VendorName: r.VendorName}]
		if ok {
			m := median
			line.MedianLagDays = &m
		}
		if ok && r.InvoiceDate != nil {
			expected := models.AddDays(*r.InvoiceDate, int(math.Round(median)))
			line.ExpectedPaymentDate = &expected
			line.DueInWindow = !expected.After(window.End)
		} else {
			result.Unprojected++
		}

		result.AllOutstanding = append(result.AllOutstanding, line)
		if line.DueInWindow {
			due = append(due, line)
		}
	}

	sortLines(result.AllOutstanding)
	sortLines(due)
	accumulate(result.AllOutstanding)
	accumulate(due)

	result.Detail = due
	result.TotalDue, result.ByDepartment, result.ByVendor = totals(due)
	if result.AllOutstanding == nil {
		result.AllOutstanding = []ForecastLine{}
	}
	if result.Detail == nil {
		result.Detail = []ForecastLine{}
	}
	return result
}

func sortLines(lines []ForecastLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		switch {
		case a.InvoiceDate == nil && b.InvoiceDate != nil:
			return false
		case a.InvoiceDate != nil && b.InvoiceDate == nil:
			return true
		case a.InvoiceDate != nil && !a.InvoiceDate.Equal(*b.InvoiceDate):
			return a.InvoiceDate.Before(*b.InvoiceDate)
		}
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		if a.VendorName != b.VendorName {
			return a.VendorName < b.VendorName
		}
		return a.InvoiceID < b.InvoiceID
	})
}

func accumulate(lines []ForecastLine) {
	running := decimal.Zero
	for i := range lines {
		running = Snap(running.Add(lines[i].outstanding))
		lines[i].CumulativeOutstanding = Round2(running)
	}
}

// totals sums exact outstanding amounts overall, per department and per
// vendor. Group tables are ordered by amount descending.
func totals(lines []ForecastLine) (decimal.Decimal, []DepartmentAmount, []VendorAmount) {
	total := decimal.Zero
	byDept := make(map[string]decimal.Decimal)
	byVendor := make(map[VendorKey]decimal.Decimal)
	for _, l := range lines {
		total = total.Add(l.outstanding)
		byDept[l.Department] = byDept[l.Department].Add(l.outstanding)
		key := VendorKey{Department: l.Department, VendorName: l.VendorName}
		byVendor[key] = byVendor[key].Add(l.outstanding)
	}
	return Round2(total), departmentAmounts(byDept), vendorAmounts(byVendor)
}

func departmentAmounts(sums map[string]decimal.Decimal) []DepartmentAmount {
	out := make([]DepartmentAmount, 0, len(sums))
	for dept, amount := range sums {
		out = append(out, DepartmentAmount{Department: dept, Amount: Round2(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Department < out[j].Department
	})
	return out
}

func vendorAmounts(sums map[VendorKey]decimal.Decimal) []VendorAmount {
	out := make([]VendorAmount, 0, len(sums))
	for key, amount := range sums {
		out = append(out, VendorAmount{Department: key.Department, VendorName: key.VendorName, Amount: Round2(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].VendorName < out[j].VendorName
	})
	return out
}
