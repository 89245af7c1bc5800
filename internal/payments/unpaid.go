package payments

import (
	"github.com/shopspring/decimal"

	"apdash/pkg/models"
)

// UnpaidResult summarises what is still owed across the ledger.
type UnpaidResult struct {
	TotalOutstanding decimal.Decimal    `json:"total_outstanding"`
	ByDepartment     []DepartmentAmount `json:"by_department"`
	ByVendor         []VendorAmount     `json:"by_vendor"`
}

// UnpaidSummary totals outstanding amounts of the effective view overall,
// per department and per (department, vendor). Overpayments reduce the totals.
// Groups that net to zero are left out of the breakdowns.
func UnpaidSummary(records []models.InvoiceRecord) *UnpaidResult {
	total := decimal.Zero
	byDept := make(map[string]decimal.Decimal)
	byVendor := make(map[VendorKey]decimal.Decimal)
	for i := range records {
		r := &records[i]
		if r.IsVoid() {
			continue
		}
		out := r.Outstanding()
		total = total.Add(out)
		byDept[r.Department] = byDept[r.Department].Add(out)
		key := VendorKey{Department: r.Department, VendorName: r.VendorName}
		byVendor[key] = byVendor[key].Add(out)
	}

	for dept, v := range byDept {
		if Snap(v).IsZero() {
			delete(byDept, dept)
		}
	}
	for key, v := range byVendor {
		if Snap(v).IsZero() {
			delete(byVendor, key)
		}
	}

	return &UnpaidResult{
		TotalOutstanding: Round2(total),
		ByDepartment:     departmentAmounts(byDept),
		ByVendor:         vendorAmounts(byVendor),
	}
}

// FilterDepartment keeps the records of one department; an empty name keeps all.
func FilterDepartment(records []models.InvoiceRecord, department string) []models.InvoiceRecord {
	if department == "" {
		return records
	}
	out := make([]models.InvoiceRecord, 0, len(records))
	for _, r := range records {
		if r.Department == department {
			out = append(out, r)
		}
	}
	return out
}
