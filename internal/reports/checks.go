package reports

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

// CheckLine is one payment reference with the invoices it settled.
type CheckLine struct {
	CheckNumber string          `json:"check_number"`
	CheckDate   *time.Time      `json:"check_date,omitempty"`
	VendorName  string          `json:"vendor_name"`
	Departments []string        `json:"departments"`
	InvoiceIDs  []string        `json:"invoice_ids"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	TPS         decimal.Decimal `json:"tps"`
	TVQ         decimal.Decimal `json:"tvq"`
	NetOfTax    decimal.Decimal `json:"net_of_tax"`
}

// CheckDepartmentTotal is what one department paid over the range.
type CheckDepartmentTotal struct {
	Department string          `json:"department"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	TPS        decimal.Decimal `json:"tps"`
	TVQ        decimal.Decimal `json:"tvq"`
}

// CheckLedgerResult lists issued payments by check number.
type CheckLedgerResult struct {
	Range       DateRange              `json:"range"`
	Checks      []CheckLine            `json:"checks"`
	Departments []CheckDepartmentTotal `json:"departments"`
	Total       CheckDepartmentTotal   `json:"total"`
}

type checkGroup struct {
	line        CheckLine
	departments map[string]bool
	paid        decimal.Decimal
	tps         decimal.Decimal
	tvq         decimal.Decimal
}

// CheckLedger groups paid invoices by check number within the check date
// range. Records without a check number are left out. Numeric check numbers
// sort first by value, then the others alphabetically.
func CheckLedger(records []models.InvoiceRecord, rng DateRange) (*CheckLedgerResult, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	groups := make(map[string]*checkGroup)
	var order []string
	byDept := make(map[string]*CheckDepartmentTotal)
	var total CheckDepartmentTotal

	for i := range records {
		r := &records[i]
		number := strings.TrimSpace(r.CheckNumber)
		if number == "" || r.IsVoid() || !rng.Contains(r.CheckDate) {
			continue
		}

		g, ok := groups[number]
		if !ok {
			g = &checkGroup{
				line:        CheckLine{CheckNumber: number, VendorName: r.VendorName},
				departments: make(map[string]bool),
			}
			groups[number] = g
			order = append(order, number)
		}
		if g.line.CheckDate == nil && r.CheckDate != nil {
			d := *r.CheckDate
			g.line.CheckDate = &d
		}
		if !g.departments[r.Department] {
			g.departments[r.Department] = true
			g.line.Departments = append(g.line.Departments, r.Department)
		}
		if r.InvoiceID != "" {
			g.line.InvoiceIDs = append(g.line.InvoiceIDs, r.InvoiceID)
		}

		tps, tvq := nullToZero(r.TPS), nullToZero(r.TVQ)
		g.paid = g.paid.Add(r.Paid())
		g.tps = g.tps.Add(tps)
		g.tvq = g.tvq.Add(tvq)

		d, ok := byDept[r.Department]
		if !ok {
			d = &CheckDepartmentTotal{Department: r.Department}
			byDept[r.Department] = d
		}
		d.PaidAmount = d.PaidAmount.Add(r.Paid())
		d.TPS = d.TPS.Add(tps)
		d.TVQ = d.TVQ.Add(tvq)

		total.PaidAmount = total.PaidAmount.Add(r.Paid())
		total.TPS = total.TPS.Add(tps)
		total.TVQ = total.TVQ.Add(tvq)
	}

	sort.SliceStable(order, func(i, j int) bool { return checkNumberLess(order[i], order[j]) })

	result := &CheckLedgerResult{
		Range:       rng,
		Checks:      make([]CheckLine, 0, len(order)),
		Departments: make([]CheckDepartmentTotal, 0, len(byDept)),
	}
	for _, number := range order {
		g := groups[number]
		sort.Strings(g.line.Departments)
		sort.Strings(g.line.InvoiceIDs)
		g.line.PaidAmount = payments.Round2(g.paid)
		g.line.TPS = payments.Round2(g.tps)
		g.line.TVQ = payments.Round2(g.tvq)
		g.line.NetOfTax = payments.Round2(g.paid.Sub(g.tps).Sub(g.tvq))
		result.Checks = append(result.Checks, g.line)
	}

	for _, d := range byDept {
		result.Departments = append(result.Departments, roundCheckTotal(*d))
	}
	sort.Slice(result.Departments, func(i, j int) bool {
		return result.Departments[i].Department < result.Departments[j].Department
	})
	result.Total = roundCheckTotal(total)

	return result, nil
}

func roundCheckTotal(t CheckDepartmentTotal) CheckDepartmentTotal {
	t.PaidAmount = payments.Round2(t.PaidAmount)
	t.TPS = payments.Round2(t.TPS)
	t.TVQ = payments.Round2(t.TVQ)
	return t
}

func checkNumberLess(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
