package payments

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"apdash/pkg/models"
)

// VendorKey identifies a vendor within a department.
type VendorKey struct {
	Department string
	VendorName string
}

// CycleStat describes how long a department takes to pay one vendor.
type CycleStat struct {
	Department         string          `json:"department"`
	VendorName         string          `json:"vendor_name"`
	InvoiceCount       int             `json:"invoice_count"`
	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	MedianLagDays      float64         `json:"payment_lag_days_median"`
	MinLagDays         float64         `json:"payment_lag_days_min"`
	MaxLagDays         float64         `json:"payment_lag_days_max"`
	MeanLagDays        float64         `json:"payment_lag_days_mean"`
}

// Key returns the grouping key of the statistic.
func (c CycleStat) Key() VendorKey {
	return VendorKey{Department: c.Department, VendorName: c.VendorName}
}

// CycleSort selects the ordering of a cycle statistics table.
type CycleSort string

const (
	SortByDepartment CycleSort = "department"
	SortByMedian     CycleSort = "median"
	SortByAmount     CycleSort = "amount"
)

type lagGroup struct {
	lags   []float64
	amount decimal.Decimal
}

// CycleStats groups records with both an invoice date and a check date by
// (department, vendor) and summarises their payment lag. Void entries are
// ignored. Groups without a qualifying record are not emitted. The result is
// ordered by department, then vendor.
func CycleStats(records []models.InvoiceRecord) []CycleStat {
	groups := make(map[VendorKey]*lagGroup)
	for i := range records {
		r := &records[i]
		if r.IsVoid() {
			continue
		}
		lag, ok := r.PaymentLagDays()
		if !ok {
			continue
		}
		key := VendorKey{Department: r.Department, VendorName: r.VendorName}
		g, found := groups[key]
		if !found {
			g = &lagGroup{}
			groups[key] = g
		}
		g.lags = append(g.lags, float64(lag))
		g.amount = g.amount.Add(r.InvoiceAmount)
	}

	stats := make([]CycleStat, 0, len(groups))
	for key, g := range groups {
		stats = append(stats, CycleStat{
			Department:         key.Department,
			VendorName:         key.VendorName,
			InvoiceCount:       len(g.lags),
			TotalInvoiceAmount: Round2(g.amount),
			MedianLagDays:      round2(Median(g.lags)),
			MinLagDays:         round2(floats.Min(g.lags)),
			MaxLagDays:         round2(floats.Max(g.lags)),
			MeanLagDays:        round2(stat.Mean(g.lags, nil)),
		})
	}

	SortCycleStats(stats, SortByDepartment)
	return stats
}

// SortCycleStats orders stats in place. Median and amount orderings are
// descending, ties broken by department and vendor.
func SortCycleStats(stats []CycleStat, by CycleSort) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		switch by {
		case SortByMedian:
			if a.MedianLagDays != b.MedianLagDays {
				return a.MedianLagDays > b.MedianLagDays
			}
		case SortByAmount:
			if !a.TotalInvoiceAmount.Equal(b.TotalInvoiceAmount) {
				return a.TotalInvoiceAmount.GreaterThan(b.TotalInvoiceAmount)
			}
		}
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		return a.VendorName < b.VendorName
	})
}

// MedianIndex maps each (department, vendor) to its median payment lag.
func MedianIndex(stats []CycleStat) map[VendorKey]float64 {
	index := make(map[VendorKey]float64, len(stats))
	for _, s := range stats {
		index[s.Key()] = s.MedianLagDays
	}
	return index
}

// Median returns the middle value of data, averaging the two middle values
// for an even count. data is not modified. The median of an empty set is NaN.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
