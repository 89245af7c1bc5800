package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apdash/internal/payments"
	"apdash/pkg/models"
)

// VendorQueryLine is one invoice matched by a vendor query.
type VendorQueryLine struct {
	VendorName    string              `json:"vendor_name"`
	Department    string              `json:"department"`
	InvoiceID     string              `json:"invoice_id"`
	InvoiceDate   *time.Time          `json:"invoice_date,omitempty"`
	CheckDate     *time.Time          `json:"check_date,omitempty"`
	CheckNumber   string              `json:"check_number,omitempty"`
	InvoiceAmount decimal.Decimal     `json:"invoice_amount"`
	PaidAmount    decimal.NullDecimal `json:"paid_amount"`
	TPS           decimal.NullDecimal `json:"tps"`
	TVQ           decimal.NullDecimal `json:"tvq"`
	Difference    decimal.Decimal     `json:"difference"`
}

// VendorQueryTotals sums matched lines; missing amounts count as zero.
type VendorQueryTotals struct {
	Department    string          `json:"department,omitempty"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	TPS           decimal.Decimal `json:"tps"`
	TVQ           decimal.Decimal `json:"tvq"`
	Difference    decimal.Decimal `json:"difference"`
}

// VendorQueryResult holds the matched invoices with department subtotals.
// A positive difference is still owed; a negative one was overpaid.
type VendorQueryResult struct {
	Keyword   string              `json:"keyword"`
	Range     DateRange           `json:"range"`
	Lines     []VendorQueryLine   `json:"lines"`
	Subtotals []VendorQueryTotals `json:"subtotals"`
	Total     VendorQueryTotals   `json:"total"`
}

type queryTotals struct {
	invoiced, paid, tps, tvq, diff decimal.Decimal
}

func (t *queryTotals) add(r *models.InvoiceRecord) {
	t.invoiced = t.invoiced.Add(r.InvoiceAmount)
	t.paid = t.paid.Add(r.Paid())
	t.tps = t.tps.Add(nullToZero(r.TPS))
	t.tvq = t.tvq.Add(nullToZero(r.TVQ))
	t.diff = t.diff.Add(r.Outstanding())
}

func (t *queryTotals) rounded(department string) VendorQueryTotals {
	return VendorQueryTotals{
		Department:    department,
		InvoiceAmount: payments.Round2(t.invoiced),
		PaidAmount:    payments.Round2(t.paid),
		TPS:           payments.Round2(t.tps),
		TVQ:           payments.Round2(t.tvq),
		Difference:    payments.Round2(t.diff),
	}
}

// VendorQuery finds the invoices of every vendor whose name contains keyword,
// ignoring case, within the invoice date range. Lines are ordered by
// department and invoice date.
func VendorQuery(records []models.InvoiceRecord, keyword string, rng DateRange) (*VendorQueryResult, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return nil, ErrEmptyKeyword
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var matched []*models.InvoiceRecord
	for i := range records {
		r := &records[i]
		if !strings.Contains(strings.ToLower(r.VendorName), needle) || !rng.Contains(r.InvoiceDate) {
			continue
		}
		matched = append(matched, r)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Department != matched[j].Department {
			return matched[i].Department < matched[j].Department
		}
		return dateBefore(matched[i].InvoiceDate, matched[j].InvoiceDate)
	})

	result := &VendorQueryResult{
		Keyword:   strings.TrimSpace(keyword),
		Range:     rng,
		Lines:     make([]VendorQueryLine, 0, len(matched)),
		Subtotals: []VendorQueryTotals{},
	}

	var total, dept queryTotals
	for i, r := range matched {
		c := r.Clone()
		result.Lines = append(result.Lines, VendorQueryLine{
			VendorName:    r.VendorName,
			Department:    r.Department,
			InvoiceID:     r.InvoiceID,
			InvoiceDate:   c.InvoiceDate,
			CheckDate:     c.CheckDate,
			CheckNumber:   r.CheckNumber,
			InvoiceAmount: payments.Round2(r.InvoiceAmount),
			PaidAmount:    roundNull(r.PaidAmount),
			TPS:           roundNull(r.TPS),
			TVQ:           roundNull(r.TVQ),
			Difference:    payments.Round2(r.Outstanding()),
		})
		dept.add(r)
		total.add(r)

		if i == len(matched)-1 || matched[i+1].Department != r.Department {
			result.Subtotals = append(result.Subtotals, dept.rounded(r.Department))
			dept = queryTotals{}
		}
	}
	result.Total = total.rounded("")

	return result, nil
}

func nullToZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

func roundNull(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NewNullDecimal(payments.Round2(v.Decimal))
}
