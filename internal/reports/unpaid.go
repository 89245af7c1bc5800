package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

// MonthlyUnpaidLine is one department's outstanding balance on invoices of one month.
type MonthlyUnpaidLine struct {
	Month       string          `json:"month"`
	Department  string          `json:"department"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Share       decimal.Decimal `json:"share_of_month_invoiced"`
}

// MonthlyUnpaidTotal sums all departments for one month.
type MonthlyUnpaidTotal struct {
	Month                 string          `json:"month"`
	Invoiced              decimal.Decimal `json:"invoiced"`
	Outstanding           decimal.Decimal `json:"outstanding"`
	CumulativeOutstanding decimal.Decimal `json:"cumulative_outstanding"`
}

// UnpaidByMonthResult is outstanding balance by invoice month.
type UnpaidByMonthResult struct {
	Months []MonthlyUnpaidTotal `json:"months"`
	Lines  []MonthlyUnpaidLine  `json:"lines"`
}

// UnpaidByMonth groups outstanding amounts by invoice month and department.
// Each month also carries the amount invoiced in it and the running
// outstanding balance up to and including it. Records without an invoice date
// cannot be placed in a month and are left out.
func UnpaidByMonth(records []models.InvoiceRecord) *UnpaidByMonthResult {
	type cellKey struct {
		month      string
		department string
	}

	cells := make(map[cellKey]decimal.Decimal)
	outstanding := make(map[string]decimal.Decimal)
	invoiced := make(map[string]decimal.Decimal)
	for i := range records {
		r := &records[i]
		if r.IsVoid() || r.InvoiceDate == nil {
			continue
		}
		month := MonthOf(*r.InvoiceDate)
		k := cellKey{month: month, department: r.Department}
		cells[k] = cells[k].Add(r.Outstanding())
		outstanding[month] = outstanding[month].Add(r.Outstanding())
		invoiced[month] = invoiced[month].Add(r.InvoiceAmount)
	}

	months := make([]string, 0, len(invoiced))
	for m := range invoiced {
		months = append(months, m)
	}
	sort.Strings(months)

	result := &UnpaidByMonthResult{
		Months: make([]MonthlyUnpaidTotal, 0, len(months)),
		Lines:  make([]MonthlyUnpaidLine, 0, len(cells)),
	}

	running := decimal.Zero
	for _, m := range months {
		running = running.Add(outstanding[m])
		result.Months = append(result.Months, MonthlyUnpaidTotal{
			Month:                 m,
			Invoiced:              payments.Round2(invoiced[m]),
			Outstanding:           payments.Round2(outstanding[m]),
			CumulativeOutstanding: payments.Round2(running),
		})
	}

	for k, amount := range cells {
		result.Lines = append(result.Lines, MonthlyUnpaidLine{
			Month:       k.month,
			Department:  k.department,
			Outstanding: payments.Round2(amount),
			Share:       share(amount, invoiced[k.month]),
		})
	}
	sort.Slice(result.Lines, func(i, j int) bool {
		a, b := result.Lines[i], result.Lines[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Department < b.Department
	})

	return result
}

// StatementTotals sums a block of statement lines.
type StatementTotals struct {
	Department    string          `json:"department,omitempty"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// StatementLine is one invoice in the unpaid statement.
type StatementLine struct {
	Department    string          `json:"department"`
	VendorName    string          `json:"vendor_name"`
	InvoiceID     string          `json:"invoice_id"`
	InvoiceDate   *time.Time      `json:"invoice_date,omitempty"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// StatementGroup is one department's lines followed by its subtotal.
type StatementGroup struct {
	Department string          `json:"department"`
	Lines      []StatementLine `json:"lines"`
	Subtotal   StatementTotals `json:"subtotal"`
}

// Statement is the accounts-payable statement for an invoice date range.
type Statement struct {
	Range        DateRange         `json:"range"`
	ByDepartment []StatementTotals `json:"by_department"`
	Groups       []StatementGroup  `json:"groups"`
	Total        StatementTotals   `json:"total"`
}

// StatementQuery selects the invoices of a statement.
type StatementQuery struct {
	Range       DateRange
	Departments []string // empty keeps every department
	Priority    []string // department display order
}

// UnpaidStatement lists every invoice in the date range with invoiced, paid
// and outstanding amounts, grouped by department and vendor, with department
// subtotals and a grand total. A check that has been issued counts as paid.
func UnpaidStatement(records []models.InvoiceRecord, q StatementQuery) *Statement {
	keep := make(map[string]bool, len(q.Departments))
	for _, d := range q.Departments {
		keep[d] = true
	}

	type sums struct{ invoiced, paid, outstanding decimal.Decimal }
	byDept := make(map[string][]StatementLine)
	deptSums := make(map[string]*sums)
	var total sums

	for i := range records {
		r := &records[i]
		if r.IsVoid() || !q.Range.Contains(r.InvoiceDate) {
			continue
		}
		if len(keep) > 0 && !keep[r.Department] {
			continue
		}

		byDept[r.Department] = append(byDept[r.Department], StatementLine{
			Department:    r.Department,
			VendorName:    r.VendorName,
			InvoiceID:     r.InvoiceID,
			InvoiceDate:   r.Clone().InvoiceDate,
			InvoiceAmount: payments.Round2(r.InvoiceAmount),
			PaidAmount:    payments.Round2(r.Paid()),
			Outstanding:   payments.Round2(r.Outstanding()),
		})

		s, ok := deptSums[r.Department]
		if !ok {
			s = &sums{}
			deptSums[r.Department] = s
		}
		s.invoiced = s.invoiced.Add(r.InvoiceAmount)
		s.paid = s.paid.Add(r.Paid())
		s.outstanding = s.outstanding.Add(r.Outstanding())
		total.invoiced = total.invoiced.Add(r.InvoiceAmount)
		total.paid = total.paid.Add(r.Paid())
		total.outstanding = total.outstanding.Add(r.Outstanding())
	}

	departments := make([]string, 0, len(byDept))
	for d := range byDept {
		departments = append(departments, d)
	}
	departments = orderDepartments(departments, q.Priority)

	stmt := &Statement{
		Range:        q.Range,
		ByDepartment: make([]StatementTotals, 0, len(departments)),
		Groups:       make([]StatementGroup, 0, len(departments)),
		Total: StatementTotals{
			InvoiceAmount: payments.Round2(total.invoiced),
			PaidAmount:    payments.Round2(total.paid),
			Outstanding:   payments.Round2(total.outstanding),
		},
	}

	for _, d := range departments {
		lines := byDept[d]
		sort.SliceStable(lines, func(i, j int) bool {
			if lines[i].VendorName != lines[j].VendorName {
				return lines[i].VendorName < lines[j].VendorName
			}
			return dateBefore(lines[i].InvoiceDate, lines[j].InvoiceDate)
		})

		s := deptSums[d]
		subtotal := StatementTotals{
			Department:    d,
			InvoiceAmount: payments.Round2(s.invoiced),
			PaidAmount:    payments.Round2(s.paid),
			Outstanding:   payments.Round2(s.outstanding),
		}
		stmt.ByDepartment = append(stmt.ByDepartment, subtotal)
		stmt.Groups = append(stmt.Groups, StatementGroup{Department: d, Lines: lines, Subtotal: subtotal})
	}

	return stmt
}

// dateBefore orders dates ascending with missing dates last.
func dateBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.Before(*b)
}
